// Package app implements the client-side core of the worker app: profile and
// settings access, the alert feed, and report submission, all over the
// gateway's record and object APIs. Stores receive the gateway and the
// session as explicit inputs; there is no ambient client singleton.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// Sentinel errors for store mutations.
var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrNotFound    = errors.New("record not found")
)

// Row is a generic record row as exchanged with the gateway.
type Row = map[string]any

// SelectQuery mirrors the gateway's select request shape.
type SelectQuery struct {
	Filter     Row    `json:"filter"`
	OrderBy    string `json:"order_by"`
	Descending bool   `json:"descending"`
	Limit      int    `json:"limit"`
}

// UpdateRequest mirrors the gateway's update request shape.
type UpdateRequest struct {
	Filter  Row `json:"filter"`
	Changes Row `json:"changes"`
}

// Gateway is the remote backend capability the stores depend on. The remote
// end scopes every record operation to the authenticated user.
type Gateway interface {
	Select(ctx context.Context, table string, q SelectQuery) ([]Row, error)
	Update(ctx context.Context, table string, req UpdateRequest) (Row, error)
	Insert(ctx context.Context, table string, record Row) (Row, error)

	// Upload stores data under bucket/key, overwriting any previous object
	// at the same key, and returns the object's public URL.
	Upload(ctx context.Context, bucket, key, contentType string, data []byte) (string, error)
}

// Session reports the signed-in user. A nil user is a normal condition; the
// stores treat it as "loads stay empty, mutations refuse".
type Session interface {
	CurrentUser() *waterhealth.User
}

// StaticSession is a Session with a fixed user, or none.
type StaticSession struct {
	User *waterhealth.User
}

// CurrentUser returns the fixed user.
func (s StaticSession) CurrentUser() *waterhealth.User {
	return s.User
}

// decodeRow maps a generic row onto a typed record via its JSON tags.
func decodeRow(row Row, target any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// decodeRows maps a slice of generic rows onto typed records.
func decodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var record T
		if err := decodeRow(row, &record); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
