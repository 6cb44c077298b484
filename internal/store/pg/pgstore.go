// Package pg implements the store interfaces on PostgreSQL via the pgx
// stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/ids"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection. Tests use this with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() auth.UserStore                 { return pgUsers{s.db} }
func (s *Store) RefreshTokens() auth.RefreshTokenStore { return pgRefresh{s.db} }
func (s *Store) ResetTokens() auth.ResetTokenStore     { return pgResets{s.db} }
func (s *Store) Roles() auth.RoleStore                 { return pgRoles{s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// --- users ---

type pgUsers struct{ db *sql.DB }

const userColumns = `id, name, email, password_hash, role, position, department,
	google_id, profile_picture, otp_verified, active, role_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u        auth.User
		googleID sql.NullString
		picture  sql.NullString
		roleID   sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Position,
		&u.Department, &googleID, &picture, &u.OTPVerified, &u.Active, &roleID,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.GoogleID = googleID.String
	u.ProfilePicture = picture.String
	u.RoleID = roleID.String
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (st pgUsers) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := st.db.ExecContext(ctx, `
		insert into users (id, name, email, password_hash, role, position, department,
			google_id, profile_picture, otp_verified, active, role_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Position, u.Department,
		nullable(u.GoogleID), nullable(u.ProfilePicture), u.OTPVerified, u.Active,
		nullable(u.RoleID), u.CreatedAt, u.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	return err
}

func (st pgUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	row := st.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return u, err
}

func (st pgUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := st.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email)=lower($1)`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return u, err
}

func (st pgUsers) List(ctx context.Context, filter auth.ListFilter) ([]*auth.User, int, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Role != "" {
		add("role=$%d", filter.Role)
	}
	if filter.Position != "" {
		add("position=$%d", filter.Position)
	}
	if filter.Department != "" {
		add("department=$%d", filter.Department)
	}
	if filter.Active != nil {
		add("active=$%d", *filter.Active)
	}
	if filter.Email != "" {
		add("email ilike '%%'||$%d||'%%'", filter.Email)
	}
	if filter.Name != "" {
		add("name ilike '%%'||$%d||'%%'", filter.Name)
	}
	where := ""
	if len(clauses) > 0 {
		where = " where " + strings.Join(clauses, " and ")
	}

	var total int
	if err := st.db.QueryRowContext(ctx, `select count(*) from users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = total
		if limit < 1 {
			limit = 1
		}
	}
	query := `select ` + userColumns + ` from users` + where +
		fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (st pgUsers) Update(ctx context.Context, u *auth.User) error {
	res, err := st.db.ExecContext(ctx, `
		update users
		set name=$2, email=$3, password_hash=$4, role=$5, position=$6, department=$7,
			google_id=$8, profile_picture=$9, otp_verified=$10, active=$11, role_id=$12,
			updated_at=$13
		where id=$1
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Position, u.Department,
		nullable(u.GoogleID), nullable(u.ProfilePicture), u.OTPVerified, u.Active,
		nullable(u.RoleID), u.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (st pgUsers) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
