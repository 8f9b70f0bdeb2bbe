package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeGateway is an in-memory Gateway used by store tests. Rows live in
// per-table slices; every operation can be forced to fail.
type FakeGateway struct {
	mu      sync.Mutex
	tables  map[string][]Row
	objects map[string][]byte
	baseURL string

	// SelectErr, UpdateErr, InsertErr, and UploadErr, when set, are
	// returned by the corresponding operation instead of running it.
	SelectErr error
	UpdateErr error
	InsertErr error
	UploadErr error

	// Selects counts Select calls per table.
	Selects map[string]int
}

// NewFakeGateway creates an empty fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		tables:  make(map[string][]Row),
		objects: make(map[string][]byte),
		baseURL: "https://gateway.test",
		Selects: make(map[string]int),
	}
}

// Seed adds a row to a table without going through Insert.
func (f *FakeGateway) Seed(table string, row Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], row)
}

// RowCount reports how many rows a table holds.
func (f *FakeGateway) RowCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

// ObjectCount reports how many distinct object keys are stored.
func (f *FakeGateway) ObjectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// Select returns rows matching the equality filter, ordered.
func (f *FakeGateway) Select(_ context.Context, table string, q SelectQuery) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Selects[table]++
	if f.SelectErr != nil {
		return nil, f.SelectErr
	}

	var out []Row
	for _, row := range f.tables[table] {
		if matches(row, q.Filter) {
			out = append(out, copyRow(row))
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Descending {
				return !less
			}
			return less
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Update applies changes to the first row matching the filter.
func (f *FakeGateway) Update(_ context.Context, table string, req UpdateRequest) (Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}

	for _, row := range f.tables[table] {
		if matches(row, req.Filter) {
			for k, v := range req.Changes {
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC()
			return copyRow(row), nil
		}
	}
	return nil, ErrNotFound
}

// Insert appends a row with a generated id and creation timestamp.
func (f *FakeGateway) Insert(_ context.Context, table string, record Row) (Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.InsertErr != nil {
		return nil, f.InsertErr
	}

	row := copyRow(record)
	row["id"] = uuid.NewString()
	row["created_at"] = time.Now().UTC()
	f.tables[table] = append(f.tables[table], row)
	return copyRow(row), nil
}

// Upload stores the object and returns a deterministic public URL.
func (f *FakeGateway) Upload(_ context.Context, bucket, key, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UploadErr != nil {
		return "", f.UploadErr
	}

	f.objects[bucket+"/"+key] = data
	return fmt.Sprintf("%s/storage/%s/%s", f.baseURL, bucket, key), nil
}

func matches(row, filter Row) bool {
	for k, want := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

var _ Gateway = (*FakeGateway)(nil)
