package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// Sentinel errors for record store operations.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoMatch       = errors.New("no record matched the filter")
	ErrReadOnly      = errors.New("column is not writable")
	ErrReadStateBack = errors.New("alert read state cannot be cleared")
)

// tableSpec describes one table exposed through the record API.
type tableSpec struct {
	// userScoped tables always have an implicit user_id filter applied
	// from the authenticated identity.
	userScoped bool
	// columns lists the filterable/orderable columns.
	columns map[string]bool
	// writable lists columns accepted in update changes and inserts.
	writable map[string]bool
	// defaultOrder is applied when the request names no ordering.
	defaultOrder string
}

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// recordTables is the closed set of tables reachable through the record API.
var recordTables = map[string]tableSpec{
	"profiles": {
		userScoped: true,
		columns: cols("id", "user_id", "full_name", "address", "pincode",
			"profile_image_url", "language", "theme", "last_login_at",
			"created_at", "updated_at"),
		writable: cols("full_name", "address", "pincode", "profile_image_url",
			"language", "theme", "last_login_at"),
		defaultOrder: "created_at desc",
	},
	"user_settings": {
		userScoped: true,
		columns: cols("id", "user_id", "emergency_contact", "privacy_location",
			"privacy_camera", "notifications_enabled", "auto_sync",
			"created_at", "updated_at"),
		writable: cols("emergency_contact", "privacy_location", "privacy_camera",
			"notifications_enabled", "auto_sync"),
		defaultOrder: "created_at desc",
	},
	"alerts": {
		userScoped:   true,
		columns:      cols("id", "user_id", "title", "message", "type", "is_read", "created_at"),
		writable:     cols("title", "message", "type", "is_read"),
		defaultOrder: "created_at desc",
	},
	"water_tests": {
		userScoped: true,
		columns: cols("id", "user_id", "source_name", "source_type", "test_method",
			"ph", "turbidity", "bacteria", "latitude", "longitude", "photo_url",
			"created_at"),
		writable: cols("source_name", "source_type", "test_method", "ph",
			"turbidity", "bacteria", "latitude", "longitude", "photo_url"),
		defaultOrder: "created_at desc",
	},
	"patient_reports": {
		userScoped: true,
		columns: cols("id", "user_id", "patient_name", "age", "gender",
			"symptoms", "other_symptoms", "severity", "village", "created_at"),
		writable: cols("patient_name", "age", "gender", "symptoms",
			"other_symptoms", "severity", "village"),
		defaultOrder: "created_at desc",
	},
	"training_modules": {
		userScoped:   false,
		columns:      cols("id", "title", "category", "duration", "lessons"),
		writable:     nil, // catalog is seeded, not client-writable
		defaultOrder: "title asc",
	},
	"training_progress": {
		userScoped:   true,
		columns:      cols("id", "user_id", "module_id", "percent", "completed", "updated_at"),
		writable:     cols("module_id", "percent", "completed"),
		defaultOrder: "updated_at desc",
	},
	"fleet_readings": {
		userScoped: false,
		columns: cols("id", "device_id", "pincode", "ph", "turbidity",
			"bacteria", "battery", "recorded_at", "created_at"),
		writable:     nil, // ingested from the queue, not client-writable
		defaultOrder: "recorded_at desc",
	},
}

// Row is a generic record row as exchanged over the record API.
type Row = map[string]any

// Store exposes the table-style record operations over GORM.
type Store struct {
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics // optional
}

// NewStore creates a record store.
func NewStore(db *gorm.DB, logger *slog.Logger, m *metrics.GatewayMetrics) (*Store, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Store{db: db, logger: logger, metrics: m}, nil
}

// SelectQuery describes a select-by-filter-with-ordering request.
type SelectQuery struct {
	Filter     Row    `json:"filter"`
	OrderBy    string `json:"order_by"`
	Descending bool   `json:"descending"`
	Limit      int    `json:"limit"`
}

// Select returns all rows of table matching the equality filter, ordered.
// userID is the authenticated identity; for user-scoped tables it is forced
// into the filter so callers can never read another user's rows.
func (s *Store) Select(ctx context.Context, table, userID string, q SelectQuery) ([]Row, error) {
	spec, err := s.observe(table, "select")
	if err != nil {
		return nil, err
	}
	defer s.timeOp(table, "select")()

	filter, err := scopeFilter(spec, userID, q.Filter)
	if err != nil {
		return nil, err
	}

	order := spec.defaultOrder
	if q.OrderBy != "" {
		if !spec.columns[q.OrderBy] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, q.OrderBy)
		}
		order = q.OrderBy + " asc"
		if q.Descending {
			order = q.OrderBy + " desc"
		}
	}

	tx := s.db.WithContext(ctx).Table(table).Where(filter).Order(order)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []Row
	if err := tx.Find(&rows).Error; err != nil {
		s.fail(table, "select")
		return nil, fmt.Errorf("select from %s failed: %w", table, err)
	}

	s.ok(table, "select")
	return rows, nil
}

// UpdateRequest describes a partial update keyed by an equality filter.
type UpdateRequest struct {
	Filter  Row `json:"filter"`
	Changes Row `json:"changes"`
}

// Update applies the partial changes to the single row matching the filter
// and returns the updated row. ErrNoMatch is returned when nothing matched.
func (s *Store) Update(ctx context.Context, table, userID string, req UpdateRequest) (Row, error) {
	spec, err := s.observe(table, "update")
	if err != nil {
		return nil, err
	}
	defer s.timeOp(table, "update")()

	filter, err := scopeFilter(spec, userID, req.Filter)
	if err != nil {
		return nil, err
	}

	changes, err := validateChanges(table, spec, req.Changes)
	if err != nil {
		return nil, err
	}
	// Not every table carries update timestamps; alerts and the submitted
	// records are append-only apart from their writable columns.
	if spec.columns["updated_at"] {
		changes["updated_at"] = time.Now().UTC()
	}

	res := s.db.WithContext(ctx).Table(table).Where(filter).Updates(changes)
	if res.Error != nil {
		s.fail(table, "update")
		return nil, fmt.Errorf("update of %s failed: %w", table, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoMatch
	}

	row, err := s.selectOne(ctx, table, filter)
	if err != nil {
		s.fail(table, "update")
		return nil, err
	}

	s.ok(table, "update")
	return row, nil
}

// Insert creates a new row owned by userID and returns it with its
// server-assigned identity and timestamps.
func (s *Store) Insert(ctx context.Context, table, userID string, record Row) (Row, error) {
	spec, err := s.observe(table, "insert")
	if err != nil {
		return nil, err
	}
	defer s.timeOp(table, "insert")()

	row, err := validateChanges(table, spec, record)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	row["id"] = id
	now := time.Now().UTC()
	if spec.columns["created_at"] {
		row["created_at"] = now
	}
	if spec.columns["updated_at"] {
		row["updated_at"] = now
	}
	if spec.userScoped {
		if userID == "" {
			return nil, ErrNoMatch
		}
		row["user_id"] = userID
	}

	if err := s.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		s.fail(table, "insert")
		return nil, fmt.Errorf("insert into %s failed: %w", table, err)
	}

	inserted, err := s.selectOne(ctx, table, Row{"id": id})
	if err != nil {
		s.fail(table, "insert")
		return nil, err
	}

	s.ok(table, "insert")
	return inserted, nil
}

// selectOne fetches a single row by filter.
func (s *Store) selectOne(ctx context.Context, table string, filter Row) (Row, error) {
	var row Row
	err := s.db.WithContext(ctx).Table(table).Where(filter).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("select from %s failed: %w", table, err)
	}
	return row, nil
}

// scopeFilter validates filter columns and forces the user_id constraint on
// user-scoped tables.
func scopeFilter(spec tableSpec, userID string, filter Row) (Row, error) {
	scoped := Row{}
	for k, v := range filter {
		if !spec.columns[k] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		scoped[k] = v
	}
	if spec.userScoped {
		if userID == "" {
			return nil, ErrNoMatch
		}
		scoped["user_id"] = userID
	}
	return scoped, nil
}

// validateChanges checks every key against the writable set and rejects the
// one known-illegal transition: clearing an alert's read state.
func validateChanges(table string, spec tableSpec, changes Row) (Row, error) {
	if len(spec.writable) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, table)
	}
	out := Row{}
	for k, v := range changes {
		if !spec.writable[k] {
			return nil, fmt.Errorf("%w: %s.%s", ErrReadOnly, table, k)
		}
		if table == "alerts" && k == "is_read" {
			if b, ok := v.(bool); ok && !b {
				return nil, ErrReadStateBack
			}
		}
		out[k] = normalizeValue(v)
	}
	return out, nil
}

// normalizeValue flattens JSON-decoded slices into their serialized form so
// map-based writes can land in text columns (the symptoms list).
func normalizeValue(v any) any {
	switch v.(type) {
	case []any, []string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(encoded)
	default:
		return v
	}
}

// observe resolves the table spec.
func (s *Store) observe(table, _ string) (tableSpec, error) {
	spec, ok := recordTables[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return spec, nil
}

// timeOp starts a duration observation for one record operation. The
// returned func stops it.
func (s *Store) timeOp(table, op string) func() {
	if s.metrics == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(s.metrics.RecordOpDuration.WithLabelValues(table, op))
	return func() { timer.ObserveDuration() }
}

func (s *Store) ok(table, op string) {
	if s.metrics != nil {
		s.metrics.RecordOpsTotal.WithLabelValues(table, op, "success").Inc()
	}
}

func (s *Store) fail(table, op string) {
	if s.metrics != nil {
		s.metrics.RecordOpsTotal.WithLabelValues(table, op, "error").Inc()
	}
}
