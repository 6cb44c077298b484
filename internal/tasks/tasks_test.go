package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/ids"
	"staffhub.org/internal/store/memory"
	"staffhub.org/internal/tasks"
)

func newTestService(t *testing.T) (*tasks.Service, string) {
	t.Helper()
	store := memory.New()
	user := &auth.User{
		Name:       "Alice",
		Email:      "alice@x.com",
		Role:       auth.RoleEmployee,
		Position:   auth.PositionTechnician,
		Department: auth.DepartmentTechnical,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc, err := tasks.NewService(store.Tasks(), store.Users())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, user.ID
}

func TestCreateTask(t *testing.T) {
	svc, assignee := newTestService(t)

	task, err := svc.Create(context.Background(), tasks.CreateInput{
		Title:      "Inspect pump",
		Priority:   tasks.PriorityP1,
		Zone:       "Zone A",
		AssigneeID: assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected assigned task id")
	}
	if task.Status != tasks.StatusNew {
		t.Fatalf("expected status %q, got %q", tasks.StatusNew, task.Status)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc, assignee := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, tasks.CreateInput{Priority: tasks.PriorityP1, AssigneeID: assignee}); !errors.Is(err, tasks.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing title, got %v", err)
	}
	if _, err := svc.Create(ctx, tasks.CreateInput{Title: "x", Priority: "P9", AssigneeID: assignee}); !errors.Is(err, tasks.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad priority, got %v", err)
	}
	if _, err := svc.Create(ctx, tasks.CreateInput{Title: "x", Priority: tasks.PriorityP3, AssigneeID: "not-an-id"}); !errors.Is(err, tasks.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed assignee id, got %v", err)
	}
	if _, err := svc.Create(ctx, tasks.CreateInput{Title: "x", Priority: tasks.PriorityP3, AssigneeID: ids.New()}); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown assignee, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	svc, assignee := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, tasks.CreateInput{
		Title: "Inspect pump", Priority: tasks.PriorityP1, AssigneeID: assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := tasks.StatusInProgress
	title := "Inspect pump B"
	updated, err := svc.Update(ctx, task.ID, tasks.UpdateInput{Status: &status, Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != tasks.StatusInProgress || updated.Title != "Inspect pump B" {
		t.Fatalf("unexpected task after update: %+v", updated)
	}

	bad := "Done-ish"
	if _, err := svc.Update(ctx, task.ID, tasks.UpdateInput{Status: &bad}); !errors.Is(err, tasks.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}
	if _, err := svc.Update(ctx, ids.New(), tasks.UpdateInput{Title: &title}); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown task, got %v", err)
	}
}

func TestListByAssignee(t *testing.T) {
	svc, assignee := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two"} {
		if _, err := svc.Create(ctx, tasks.CreateInput{
			Title: title, Priority: tasks.PriorityP2, AssigneeID: assignee,
		}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	list, err := svc.ListByAssignee(ctx, assignee)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
}

func TestDeleteTask(t *testing.T) {
	svc, assignee := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, tasks.CreateInput{
		Title: "Inspect pump", Priority: tasks.PriorityP1, AssigneeID: assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, task.ID); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
