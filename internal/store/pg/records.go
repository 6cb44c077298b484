package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/attendance"
	"staffhub.org/internal/ids"
	"staffhub.org/internal/tasks"
)

// Attendance returns the clock-event store backed by this database.
func (s *Store) Attendance() attendance.Store { return pgEvents{s.db} }

// Tasks returns the task store backed by this database.
func (s *Store) Tasks() tasks.Store { return pgTasks{s.db} }

// Alerts returns the alert store backed by this database.
func (s *Store) Alerts() alerts.Store { return pgAlerts{s.db} }

// --- attendance ---

type pgEvents struct{ db *sql.DB }

func (st pgEvents) Create(ctx context.Context, ev *attendance.Event) error {
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	_, err := st.db.ExecContext(ctx, `
		insert into attendance_events (id, user_id, user_name, day, clock, kind, state, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ev.ID, ev.UserID, ev.UserName, ev.Date, ev.Clock, ev.Kind, ev.State, ev.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return attendance.ErrDuplicate
	}
	return err
}

func scanEvent(rows *sql.Rows) (*attendance.Event, error) {
	var ev attendance.Event
	err := rows.Scan(&ev.ID, &ev.UserID, &ev.UserName, &ev.Date, &ev.Clock,
		&ev.Kind, &ev.State, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func collectEvents(rows *sql.Rows) ([]*attendance.Event, error) {
	defer rows.Close()
	var out []*attendance.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (st pgEvents) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*attendance.Event, error) {
	rows, err := st.db.QueryContext(ctx, `
		select id, user_id, user_name, day, clock, kind, state, created_at
		from attendance_events
		where user_id=$1 and day between $2 and $3
		order by day, clock
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (st pgEvents) ListRange(ctx context.Context, start, end time.Time) ([]*attendance.Event, error) {
	rows, err := st.db.QueryContext(ctx, `
		select id, user_id, user_name, day, clock, kind, state, created_at
		from attendance_events
		where day between $1 and $2
		order by day, clock
	`, start, end)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// --- tasks ---

type pgTasks struct{ db *sql.DB }

func (st pgTasks) Create(ctx context.Context, t *tasks.Task) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	_, err := st.db.ExecContext(ctx, `
		insert into tasks (id, title, description, priority, zone, status, assignee_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.Title, t.Description, t.Priority, t.Zone, t.Status, t.AssigneeID, t.CreatedAt, t.UpdatedAt)
	return err
}

func scanTask(row interface{ Scan(...any) error }) (*tasks.Task, error) {
	var t tasks.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Zone,
		&t.Status, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const taskColumns = `id, title, description, priority, zone, status, assignee_id, created_at, updated_at`

func (st pgTasks) Find(ctx context.Context, id string) (*tasks.Task, error) {
	row := st.db.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id=$1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tasks.ErrNotFound
	}
	return t, err
}

func (st pgTasks) list(ctx context.Context, query string, args ...any) ([]*tasks.Task, error) {
	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (st pgTasks) List(ctx context.Context) ([]*tasks.Task, error) {
	return st.list(ctx, `select `+taskColumns+` from tasks order by created_at desc`)
}

func (st pgTasks) ListByAssignee(ctx context.Context, userID string) ([]*tasks.Task, error) {
	return st.list(ctx, `select `+taskColumns+` from tasks where assignee_id=$1 order by created_at desc`, userID)
}

func (st pgTasks) Update(ctx context.Context, t *tasks.Task) error {
	res, err := st.db.ExecContext(ctx, `
		update tasks
		set title=$2, description=$3, priority=$4, zone=$5, status=$6, assignee_id=$7, updated_at=$8
		where id=$1
	`, t.ID, t.Title, t.Description, t.Priority, t.Zone, t.Status, t.AssigneeID, t.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tasks.ErrNotFound
	}
	return nil
}

func (st pgTasks) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `delete from tasks where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tasks.ErrNotFound
	}
	return nil
}

// --- alerts ---

type pgAlerts struct{ db *sql.DB }

const alertColumns = `id, title, description, severity, location, status, created_at, updated_at`

func (st pgAlerts) Create(ctx context.Context, a *alerts.Alert) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := st.db.ExecContext(ctx, `
		insert into alerts (id, title, description, severity, location, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.Title, a.Description, a.Severity, a.Location, a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAlert(row interface{ Scan(...any) error }) (*alerts.Alert, error) {
	var a alerts.Alert
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Severity, &a.Location,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (st pgAlerts) Find(ctx context.Context, id string) (*alerts.Alert, error) {
	row := st.db.QueryRowContext(ctx, `select `+alertColumns+` from alerts where id=$1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, alerts.ErrNotFound
	}
	return a, err
}

func (st pgAlerts) List(ctx context.Context) ([]*alerts.Alert, error) {
	rows, err := st.db.QueryContext(ctx, `select `+alertColumns+` from alerts order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*alerts.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (st pgAlerts) Update(ctx context.Context, a *alerts.Alert) error {
	res, err := st.db.ExecContext(ctx, `
		update alerts
		set title=$2, description=$3, severity=$4, location=$5, status=$6, updated_at=$7
		where id=$1
	`, a.ID, a.Title, a.Description, a.Severity, a.Location, a.Status, a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

func (st pgAlerts) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `delete from alerts where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return alerts.ErrNotFound
	}
	return nil
}
