package alerts_test

import (
	"context"
	"errors"
	"testing"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/ids"
	"staffhub.org/internal/store/memory"
)

func newTestService(t *testing.T) *alerts.Service {
	t.Helper()
	svc, err := alerts.NewService(memory.New().Alerts())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateAlert(t *testing.T) {
	svc := newTestService(t)

	alert, err := svc.Create(context.Background(), alerts.CreateInput{
		Title:       "Gas leak",
		Description: "Sensor 4 above threshold",
		Severity:    alerts.SeverityCritical,
		Location:    "Zone B",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if alert.ID == "" {
		t.Fatal("expected assigned alert id")
	}
	if alert.Status != alerts.StatusNew {
		t.Fatalf("expected status %q, got %q", alerts.StatusNew, alert.Status)
	}
}

func TestCreateAlertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, alerts.CreateInput{Description: "d", Severity: alerts.SeverityMinor}); !errors.Is(err, alerts.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing title, got %v", err)
	}
	if _, err := svc.Create(ctx, alerts.CreateInput{Title: "t", Description: "d", Severity: "Catastrophic"}); !errors.Is(err, alerts.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown severity, got %v", err)
	}
}

func TestUpdateAlertLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alert, err := svc.Create(ctx, alerts.CreateInput{
		Title: "Gas leak", Description: "Sensor 4", Severity: alerts.SeverityModerate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, status := range []string{alerts.StatusInProgress, alerts.StatusResolved} {
		s := status
		alert, err = svc.Update(ctx, alert.ID, alerts.UpdateInput{Status: &s})
		if err != nil {
			t.Fatalf("update to %q: %v", status, err)
		}
		if alert.Status != status {
			t.Fatalf("expected status %q, got %q", status, alert.Status)
		}
	}

	bad := "Ignored"
	if _, err := svc.Update(ctx, alert.ID, alerts.UpdateInput{Status: &bad}); !errors.Is(err, alerts.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestAlertNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, ids.New()); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, "not-an-id"); !errors.Is(err, alerts.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed id, got %v", err)
	}
	if err := svc.Delete(ctx, ids.New()); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}
