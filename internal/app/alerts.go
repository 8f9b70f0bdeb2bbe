package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// AlertFilter selects a view over the held alert collection.
type AlertFilter string

// Recognized alert filters. Unknown values behave like FilterAll.
const (
	FilterAll       AlertFilter = "all"
	FilterToday     AlertFilter = "today"
	FilterYesterday AlertFilter = "yesterday"
	FilterUnread    AlertFilter = "unread"
)

// AlertStore holds the signed-in user's alert feed, newest first.
type AlertStore struct {
	gw      Gateway
	session Session
	logger  *slog.Logger

	mu      sync.Mutex
	alerts  []waterhealth.Alert
	loading bool
	loadSeq uint64
}

// NewAlertStore creates an alert store.
func NewAlertStore(gw Gateway, session Session, logger *slog.Logger) (*AlertStore, error) {
	if gw == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &AlertStore{gw: gw, session: session, logger: logger}, nil
}

// Alerts returns a copy of the held collection, newest first.
func (s *AlertStore) Alerts() []waterhealth.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]waterhealth.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Loading reports whether a load is in flight.
func (s *AlertStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// UnreadCount reports how many held alerts are unread.
func (s *AlertStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// Load fetches the user's alerts, newest first. Without a session it clears
// the store and returns silently. Fetch failures are logged and leave the
// collection empty.
func (s *AlertStore) Load(ctx context.Context) {
	user := s.session.CurrentUser()

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	if user == nil {
		s.alerts = nil
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	rows, err := s.gw.Select(ctx, "alerts", SelectQuery{
		OrderBy:    "created_at",
		Descending: true,
	})

	var alerts []waterhealth.Alert
	if err != nil {
		s.logger.Error("failed to fetch alerts", "error", err)
	} else {
		alerts, err = decodeRows[waterhealth.Alert](rows)
		if err != nil {
			s.logger.Error("failed to decode alerts", "error", err)
			alerts = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		return
	}
	s.alerts = alerts
	s.loading = false
}

// MarkAsRead marks one alert read. Marking an already-read alert is a no-op.
// The held entry flips only after the gateway accepts the change.
func (s *AlertStore) MarkAsRead(ctx context.Context, alertID string) error {
	user := s.session.CurrentUser()
	if user == nil {
		return ErrNotSignedIn
	}

	s.mu.Lock()
	for _, a := range s.alerts {
		if a.ID == alertID && a.IsRead {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	_, err := s.gw.Update(ctx, "alerts", UpdateRequest{
		Filter:  Row{"id": alertID},
		Changes: Row{"is_read": true},
	})
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].IsRead = true
			break
		}
	}
	return nil
}

// CreateAlert inserts a new unread alert and prepends it to the held
// collection.
func (s *AlertStore) CreateAlert(ctx context.Context, title, message, alertType string) (*waterhealth.Alert, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	if alertType == "" {
		alertType = waterhealth.AlertInfo
	}

	row, err := s.gw.Insert(ctx, "alerts", Row{
		"title":   title,
		"message": message,
		"type":    alertType,
		"is_read": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	var alert waterhealth.Alert
	if err := decodeRow(row, &alert); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.alerts = append([]waterhealth.Alert{alert}, s.alerts...)
	s.mu.Unlock()
	return &alert, nil
}

// FilterAlerts returns the held alerts matching the filter. Day windows are
// computed from local midnight at call time, so "today" and "yesterday" are
// always disjoint.
func (s *AlertStore) FilterAlerts(filter AlertFilter) []waterhealth.Alert {
	alerts := s.Alerts()

	switch filter {
	case FilterUnread:
		out := alerts[:0]
		for _, a := range alerts {
			if !a.IsRead {
				out = append(out, a)
			}
		}
		return out

	case FilterToday, FilterYesterday:
		now := time.Now()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if filter == FilterYesterday {
			start = start.AddDate(0, 0, -1)
		}
		end := start.AddDate(0, 0, 1)

		out := alerts[:0]
		for _, a := range alerts {
			created := a.CreatedAt.In(now.Location())
			if !created.Before(start) && created.Before(end) {
				out = append(out, a)
			}
		}
		return out

	default:
		return alerts
	}
}
