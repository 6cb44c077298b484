package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/ids"
)

// --- refresh tokens ---

type pgRefresh struct{ db *sql.DB }

func (st pgRefresh) Upsert(ctx context.Context, tok *auth.RefreshToken) error {
	_, err := st.db.ExecContext(ctx, `
		insert into refresh_tokens (user_id, token, expires_at)
		values ($1,$2,$3)
		on conflict (user_id) do update
		set token = excluded.token, expires_at = excluded.expires_at
	`, tok.UserID, tok.Token, tok.ExpiresAt)
	return err
}

func (st pgRefresh) FindByUser(ctx context.Context, userID string) (*auth.RefreshToken, error) {
	var tok auth.RefreshToken
	err := st.db.QueryRowContext(ctx, `
		select user_id, token, expires_at from refresh_tokens where user_id=$1
	`, userID).Scan(&tok.UserID, &tok.Token, &tok.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (st pgRefresh) DeleteByUser(ctx context.Context, userID string) error {
	_, err := st.db.ExecContext(ctx, `delete from refresh_tokens where user_id=$1`, userID)
	return err
}

// --- reset tokens ---

type pgResets struct{ db *sql.DB }

func (st pgResets) Create(ctx context.Context, tok *auth.ResetToken) error {
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	_, err := st.db.ExecContext(ctx, `
		insert into reset_tokens (id, user_id, otp, token, expires_at, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, tok.ID, tok.UserID, tok.OTP, tok.Token, tok.ExpiresAt, tok.CreatedAt)
	return err
}

func (st pgResets) FindValid(ctx context.Context, userID, otp string, now time.Time) (*auth.ResetToken, error) {
	var tok auth.ResetToken
	err := st.db.QueryRowContext(ctx, `
		select id, user_id, otp, token, expires_at, created_at
		from reset_tokens
		where user_id=$1 and otp=$2 and expires_at > $3
	`, userID, otp, now).Scan(&tok.ID, &tok.UserID, &tok.OTP, &tok.Token, &tok.ExpiresAt, &tok.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (st pgResets) AnyValid(ctx context.Context, userID string, now time.Time) (bool, error) {
	var exists bool
	err := st.db.QueryRowContext(ctx, `
		select exists (select 1 from reset_tokens where user_id=$1 and expires_at > $2)
	`, userID, now).Scan(&exists)
	return exists, err
}

func (st pgResets) DeleteByUser(ctx context.Context, userID string) error {
	_, err := st.db.ExecContext(ctx, `delete from reset_tokens where user_id=$1`, userID)
	return err
}

// --- roles ---

type pgRoles struct{ db *sql.DB }

func scanRole(row interface{ Scan(...any) error }) (*auth.Role, error) {
	var (
		role auth.Role
		raw  []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &raw, &role.CreatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &role.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return &role, nil
}

func (st pgRoles) Create(ctx context.Context, role *auth.Role) error {
	if role.ID == "" {
		role.ID = ids.New()
	}
	raw, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = st.db.ExecContext(ctx, `
		insert into roles (id, name, permissions, created_at)
		values ($1,$2,$3,$4)
	`, role.ID, role.Name, raw, role.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	return err
}

func (st pgRoles) Find(ctx context.Context, id string) (*auth.Role, error) {
	row := st.db.QueryRowContext(ctx, `
		select id, name, permissions, created_at from roles where id=$1
	`, id)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return role, err
}

func (st pgRoles) FindByName(ctx context.Context, name string) (*auth.Role, error) {
	row := st.db.QueryRowContext(ctx, `
		select id, name, permissions, created_at from roles where name=$1
	`, name)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return role, err
}

func (st pgRoles) List(ctx context.Context) ([]*auth.Role, error) {
	rows, err := st.db.QueryContext(ctx, `
		select id, name, permissions, created_at from roles order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*auth.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
