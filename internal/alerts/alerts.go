package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staffhub.org/internal/ids"
)

var (
	ErrNotFound     = errors.New("alerts: not found")
	ErrInvalidInput = errors.New("alerts: invalid input")
)

// Severities.
const (
	SeverityCritical = "Critical"
	SeverityModerate = "Moderate"
	SeverityMinor    = "Minor"
)

// Statuses.
const (
	StatusNew        = "New"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// Alert is an incident report.
type Alert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists alerts.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Find(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context) ([]*Alert, error)
	Update(ctx context.Context, a *Alert) error
	Delete(ctx context.Context, id string) error
}

// Service validates and executes alert operations.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the alert service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("alerts: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// CreateInput carries a new alert.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Location    string `json:"location"`
}

// Create persists a new alert in the New status.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Alert, error) {
	if in.Title == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if !validSeverity(in.Severity) {
		return nil, fmt.Errorf("%w: severity must be Critical, Moderate or Minor", ErrInvalidInput)
	}
	now := s.now().UTC()
	alert := &Alert{
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		Location:    in.Location,
		Status:      StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// List returns all alerts.
func (s *Service) List(ctx context.Context) ([]*Alert, error) {
	return s.store.List(ctx)
}

// Get returns an alert by id.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	if !ids.Valid(id) {
		return nil, fmt.Errorf("%w: invalid alert id format", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// UpdateInput is a typed partial update.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Severity    *string `json:"severity"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
}

// Update applies the present fields of in to the alert.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Alert, error) {
	if !ids.Valid(id) {
		return nil, fmt.Errorf("%w: invalid alert id format", ErrInvalidInput)
	}
	alert, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		alert.Title = *in.Title
	}
	if in.Description != nil {
		alert.Description = *in.Description
	}
	if in.Severity != nil {
		if !validSeverity(*in.Severity) {
			return nil, fmt.Errorf("%w: severity must be Critical, Moderate or Minor", ErrInvalidInput)
		}
		alert.Severity = *in.Severity
	}
	if in.Location != nil {
		alert.Location = *in.Location
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, *in.Status)
		}
		alert.Status = *in.Status
	}
	alert.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Delete removes an alert.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return fmt.Errorf("%w: invalid alert id format", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

func validSeverity(s string) bool {
	return s == SeverityCritical || s == SeverityModerate || s == SeverityMinor
}

func validStatus(s string) bool {
	return s == StatusNew || s == StatusInProgress || s == StatusResolved
}
