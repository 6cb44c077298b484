package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staffhub.org/internal/auth"
)

var (
	ErrNotFound     = errors.New("attendance: not found")
	ErrInvalidInput = errors.New("attendance: invalid input")
	ErrDuplicate    = errors.New("attendance: duplicate clock event")
)

// Clock event kinds.
const (
	KindIn  = "IN"
	KindOut = "OUT"
)

// Presence states.
const (
	StatePresent = "Present"
	StateAbsent  = "Absent"
)

// Event is a single clock-in or clock-out record. At most one event exists
// per (user, day, kind); the store enforces that.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Date      time.Time `json:"date"`
	Clock     string    `json:"time"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists clock events. Create returns ErrDuplicate when an event
// with the same (user, day, kind) already exists.
type Store interface {
	Create(ctx context.Context, ev *Event) error
	ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*Event, error)
	ListRange(ctx context.Context, start, end time.Time) ([]*Event, error)
}

// Service implements the attendance rules on top of the store and the user
// directory.
type Service struct {
	store Store
	users auth.UserStore
	now   func() time.Time
}

// NewService constructs the attendance service.
func NewService(store Store, users auth.UserStore) (*Service, error) {
	if store == nil {
		return nil, errors.New("attendance: store is required")
	}
	if users == nil {
		return nil, errors.New("attendance: user store is required")
	}
	return &Service{store: store, users: users, now: time.Now}, nil
}

// WithClock overrides the time source. Test use only.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// RecordInput carries a clock event request. Date is "2006-01-02" and Clock
// is "15:04"; both are validated here, not at the transport boundary.
type RecordInput struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Clock  string `json:"time"`
	Kind   string `json:"kind"`
}

// Record stores a clock event for the user, defaulting the state to Present.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Event, error) {
	if in.Kind != KindIn && in.Kind != KindOut {
		return nil, fmt.Errorf("%w: kind must be %s or %s", ErrInvalidInput, KindIn, KindOut)
	}
	day, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be in YYYY-MM-DD format", ErrInvalidInput)
	}
	if _, err := time.Parse("15:04", in.Clock); err != nil {
		return nil, fmt.Errorf("%w: time must be in HH:MM format", ErrInvalidInput)
	}
	user, err := s.users.Find(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrNotFound)
		}
		return nil, err
	}

	ev := &Event{
		UserID:    user.ID,
		UserName:  user.Name,
		Date:      day.UTC(),
		Clock:     in.Clock,
		Kind:      in.Kind,
		State:     StatePresent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ListByUser returns the user's events within [start, end].
func (s *Service) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*Event, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end precedes start", ErrInvalidInput)
	}
	return s.store.ListByUser(ctx, userID, start, end)
}

// ListRange returns every event within [start, end], all users.
func (s *Service) ListRange(ctx context.Context, start, end time.Time) ([]*Event, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end precedes start", ErrInvalidInput)
	}
	return s.store.ListRange(ctx, start, end)
}

// ReportEntry summarizes one user's presence over a week window.
type ReportEntry struct {
	User        auth.UserSummary `json:"user"`
	UserID      string           `json:"user_id"`
	DaysPresent int              `json:"days_present"`
	DaysAbsent  int              `json:"days_absent"`
}

// PresenceReport counts, per user, the distinct days with at least one clock
// event inside [start, end]; absence is measured against a 7-day week.
func (s *Service) PresenceReport(ctx context.Context, start, end time.Time) ([]ReportEntry, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end precedes start", ErrInvalidInput)
	}
	users, _, err := s.users.List(ctx, auth.ListFilter{Page: 1, Limit: 1000})
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	days := make(map[string]map[string]struct{})
	for _, ev := range events {
		key := ev.Date.Format("2006-01-02")
		if days[ev.UserID] == nil {
			days[ev.UserID] = make(map[string]struct{})
		}
		days[ev.UserID][key] = struct{}{}
	}

	report := make([]ReportEntry, 0, len(users))
	for _, u := range users {
		present := len(days[u.ID])
		absent := 7 - present
		if absent < 0 {
			absent = 0
		}
		report = append(report, ReportEntry{
			User:        u.Summary(),
			UserID:      u.ID,
			DaysPresent: present,
			DaysAbsent:  absent,
		})
	}
	return report, nil
}
