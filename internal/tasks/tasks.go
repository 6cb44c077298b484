package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/ids"
)

var (
	ErrNotFound     = errors.New("tasks: not found")
	ErrInvalidInput = errors.New("tasks: invalid input")
)

// Priorities.
const (
	PriorityP1 = "P1"
	PriorityP2 = "P2"
	PriorityP3 = "P3"
)

// Statuses.
const (
	StatusNew        = "New"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Task is a unit of work assigned to a user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority"`
	Zone        string    `json:"zone,omitempty"`
	Status      string    `json:"status"`
	AssigneeID  string    `json:"assignee_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists tasks.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Find(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

// Service validates and executes task operations.
type Service struct {
	store Store
	users auth.UserStore
	now   func() time.Time
}

// NewService constructs the task service.
func NewService(store Store, users auth.UserStore) (*Service, error) {
	if store == nil {
		return nil, errors.New("tasks: store is required")
	}
	if users == nil {
		return nil, errors.New("tasks: user store is required")
	}
	return &Service{store: store, users: users, now: time.Now}, nil
}

// CreateInput carries a new task.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Zone        string `json:"zone"`
	AssigneeID  string `json:"assignee_id"`
}

// Create validates the input and persists a task in the New status.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !validPriority(in.Priority) {
		return nil, fmt.Errorf("%w: priority must be P1, P2 or P3", ErrInvalidInput)
	}
	if !ids.Valid(in.AssigneeID) {
		return nil, fmt.Errorf("%w: invalid user id format", ErrInvalidInput)
	}
	if _, err := s.users.Find(ctx, in.AssigneeID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown assignee", ErrNotFound)
		}
		return nil, err
	}
	now := s.now().UTC()
	task := &Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Zone:        in.Zone,
		Status:      StatusNew,
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]*Task, error) {
	return s.store.List(ctx)
}

// ListByAssignee returns tasks assigned to one user.
func (s *Service) ListByAssignee(ctx context.Context, userID string) ([]*Task, error) {
	if !ids.Valid(userID) {
		return nil, fmt.Errorf("%w: invalid user id format", ErrInvalidInput)
	}
	return s.store.ListByAssignee(ctx, userID)
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	if !ids.Valid(id) {
		return nil, fmt.Errorf("%w: invalid task id format", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// UpdateInput is a typed partial update.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Zone        *string `json:"zone"`
	Status      *string `json:"status"`
	AssigneeID  *string `json:"assignee_id"`
}

// Update applies the present fields of in to the task.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Task, error) {
	if !ids.Valid(id) {
		return nil, fmt.Errorf("%w: invalid task id format", ErrInvalidInput)
	}
	task, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return nil, fmt.Errorf("%w: priority must be P1, P2 or P3", ErrInvalidInput)
		}
		task.Priority = *in.Priority
	}
	if in.Zone != nil {
		task.Zone = *in.Zone
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, *in.Status)
		}
		task.Status = *in.Status
	}
	if in.AssigneeID != nil {
		if !ids.Valid(*in.AssigneeID) {
			return nil, fmt.Errorf("%w: invalid user id format", ErrInvalidInput)
		}
		if _, err := s.users.Find(ctx, *in.AssigneeID); err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown assignee", ErrNotFound)
			}
			return nil, err
		}
		task.AssigneeID = *in.AssigneeID
	}
	task.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return fmt.Errorf("%w: invalid task id format", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

func validPriority(p string) bool {
	return p == PriorityP1 || p == PriorityP2 || p == PriorityP3
}

func validStatus(s string) bool {
	return s == StatusNew || s == StatusInProgress || s == StatusCompleted
}
