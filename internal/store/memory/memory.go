// Package memory implements every store interface in process memory. It
// backs the test suites and the zero-dependency development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/attendance"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/ids"
	"staffhub.org/internal/tasks"
)

// Store holds all collections behind a single lock. Returned records are
// copies; callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*auth.User
	refresh map[string]*auth.RefreshToken
	resets  map[string]*auth.ResetToken
	roles   map[string]*auth.Role
	events  map[string]*attendance.Event
	tasks   map[string]*tasks.Task
	alerts  map[string]*alerts.Alert
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]*auth.User),
		refresh: make(map[string]*auth.RefreshToken),
		resets:  make(map[string]*auth.ResetToken),
		roles:   make(map[string]*auth.Role),
		events:  make(map[string]*attendance.Event),
		tasks:   make(map[string]*tasks.Task),
		alerts:  make(map[string]*alerts.Alert),
	}
}

var _ auth.Store = (*Store)(nil)

func (s *Store) Users() auth.UserStore                 { return userStore{s} }
func (s *Store) RefreshTokens() auth.RefreshTokenStore { return refreshStore{s} }
func (s *Store) ResetTokens() auth.ResetTokenStore     { return resetStore{s} }
func (s *Store) Roles() auth.RoleStore                 { return roleStore{s} }

// Attendance returns the clock-event store view.
func (s *Store) Attendance() attendance.Store { return eventStore{s} }

// Tasks returns the task store view.
func (s *Store) Tasks() tasks.Store { return taskStore{s} }

// Alerts returns the alert store view.
func (s *Store) Alerts() alerts.Store { return alertStore{s} }

// --- users ---

type userStore struct{ s *Store }

func (st userStore) Create(ctx context.Context, u *auth.User) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range st.s.users {
		if strings.ToLower(existing.Email) == email {
			return auth.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	cp := *u
	st.s.users[u.ID] = &cp
	return nil
}

func (st userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	u, ok := st.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (st userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range st.s.users {
		if strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st userStore) List(ctx context.Context, filter auth.ListFilter) ([]*auth.User, int, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var matched []*auth.User
	for _, u := range st.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Position != "" && u.Position != filter.Position {
			continue
		}
		if filter.Department != "" && u.Department != filter.Department {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if filter.Email != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Email)) {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Name)) {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = total
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (st userStore) Update(ctx context.Context, u *auth.User) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	email := strings.ToLower(u.Email)
	for id, existing := range st.s.users {
		if id != u.ID && strings.ToLower(existing.Email) == email {
			return auth.ErrConflict
		}
	}
	cp := *u
	st.s.users[u.ID] = &cp
	return nil
}

func (st userStore) Delete(ctx context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(st.s.users, id)
	return nil
}

// --- refresh tokens ---

type refreshStore struct{ s *Store }

func (st refreshStore) Upsert(ctx context.Context, tok *auth.RefreshToken) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	cp := *tok
	st.s.refresh[tok.UserID] = &cp
	return nil
}

func (st refreshStore) FindByUser(ctx context.Context, userID string) (*auth.RefreshToken, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	tok, ok := st.s.refresh[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (st refreshStore) DeleteByUser(ctx context.Context, userID string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	delete(st.s.refresh, userID)
	return nil
}

// --- reset tokens ---

type resetStore struct{ s *Store }

func (st resetStore) Create(ctx context.Context, tok *auth.ResetToken) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	cp := *tok
	st.s.resets[tok.ID] = &cp
	return nil
}

func (st resetStore) FindValid(ctx context.Context, userID, otp string, now time.Time) (*auth.ResetToken, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	for _, tok := range st.s.resets {
		if tok.UserID == userID && tok.OTP == otp && tok.ExpiresAt.After(now) {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st resetStore) AnyValid(ctx context.Context, userID string, now time.Time) (bool, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	for _, tok := range st.s.resets {
		if tok.UserID == userID && tok.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (st resetStore) DeleteByUser(ctx context.Context, userID string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for id, tok := range st.s.resets {
		if tok.UserID == userID {
			delete(st.s.resets, id)
		}
	}
	return nil
}

// --- roles ---

type roleStore struct{ s *Store }

func (st roleStore) Create(ctx context.Context, role *auth.Role) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, existing := range st.s.roles {
		if existing.Name == role.Name {
			return auth.ErrConflict
		}
	}
	if role.ID == "" {
		role.ID = ids.New()
	}
	cp := *role
	cp.Permissions = append([]auth.Permission(nil), role.Permissions...)
	st.s.roles[role.ID] = &cp
	return nil
}

func (st roleStore) Find(ctx context.Context, id string) (*auth.Role, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	role, ok := st.s.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *role
	cp.Permissions = append([]auth.Permission(nil), role.Permissions...)
	return &cp, nil
}

func (st roleStore) FindByName(ctx context.Context, name string) (*auth.Role, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	for _, role := range st.s.roles {
		if role.Name == name {
			cp := *role
			cp.Permissions = append([]auth.Permission(nil), role.Permissions...)
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st roleStore) List(ctx context.Context) ([]*auth.Role, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	out := make([]*auth.Role, 0, len(st.s.roles))
	for _, role := range st.s.roles {
		cp := *role
		cp.Permissions = append([]auth.Permission(nil), role.Permissions...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- attendance ---

type eventStore struct{ s *Store }

func eventKey(ev *attendance.Event) string {
	return ev.UserID + "|" + ev.Date.Format("2006-01-02") + "|" + ev.Kind
}

func (st eventStore) Create(ctx context.Context, ev *attendance.Event) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	key := eventKey(ev)
	for _, existing := range st.s.events {
		if eventKey(existing) == key {
			return attendance.ErrDuplicate
		}
	}
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	cp := *ev
	st.s.events[ev.ID] = &cp
	return nil
}

func (st eventStore) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*attendance.Event, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var out []*attendance.Event
	for _, ev := range st.s.events {
		if ev.UserID != userID {
			continue
		}
		if ev.Date.Before(start) || ev.Date.After(end) {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	sortEvents(out)
	return out, nil
}

func (st eventStore) ListRange(ctx context.Context, start, end time.Time) ([]*attendance.Event, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var out []*attendance.Event
	for _, ev := range st.s.events {
		if ev.Date.Before(start) || ev.Date.After(end) {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(evs []*attendance.Event) {
	sort.Slice(evs, func(i, j int) bool {
		if !evs[i].Date.Equal(evs[j].Date) {
			return evs[i].Date.Before(evs[j].Date)
		}
		return evs[i].Clock < evs[j].Clock
	})
}

// --- tasks ---

type taskStore struct{ s *Store }

func (st taskStore) Create(ctx context.Context, t *tasks.Task) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	cp := *t
	st.s.tasks[t.ID] = &cp
	return nil
}

func (st taskStore) Find(ctx context.Context, id string) (*tasks.Task, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	t, ok := st.s.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (st taskStore) List(ctx context.Context) ([]*tasks.Task, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	out := make([]*tasks.Task, 0, len(st.s.tasks))
	for _, t := range st.s.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st taskStore) ListByAssignee(ctx context.Context, userID string) ([]*tasks.Task, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var out []*tasks.Task
	for _, t := range st.s.tasks {
		if t.AssigneeID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st taskStore) Update(ctx context.Context, t *tasks.Task) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.tasks[t.ID]; !ok {
		return tasks.ErrNotFound
	}
	cp := *t
	st.s.tasks[t.ID] = &cp
	return nil
}

func (st taskStore) Delete(ctx context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.tasks[id]; !ok {
		return tasks.ErrNotFound
	}
	delete(st.s.tasks, id)
	return nil
}

// --- alerts ---

type alertStore struct{ s *Store }

func (st alertStore) Create(ctx context.Context, a *alerts.Alert) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.New()
	}
	cp := *a
	st.s.alerts[a.ID] = &cp
	return nil
}

func (st alertStore) Find(ctx context.Context, id string) (*alerts.Alert, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	a, ok := st.s.alerts[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (st alertStore) List(ctx context.Context) ([]*alerts.Alert, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	out := make([]*alerts.Alert, 0, len(st.s.alerts))
	for _, a := range st.s.alerts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st alertStore) Update(ctx context.Context, a *alerts.Alert) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.alerts[a.ID]; !ok {
		return alerts.ErrNotFound
	}
	cp := *a
	st.s.alerts[a.ID] = &cp
	return nil
}

func (st alertStore) Delete(ctx context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.alerts[id]; !ok {
		return alerts.ErrNotFound
	}
	delete(st.s.alerts, id)
	return nil
}
