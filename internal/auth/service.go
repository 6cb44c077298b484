package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRefreshTTL = 3 * 24 * time.Hour
	defaultOTPTTL     = time.Hour
)

// Mailer delivers password-reset codes. Delivery is best-effort: the service
// recovers from failures instead of failing the enclosing request.
type Mailer interface {
	SendPasswordResetOTP(ctx context.Context, to, otp string) error
}

// Service is the auth facade: it orchestrates signup, login, Google sign-in,
// the OTP reset flow and admin user management on top of the credential
// store and token issuer.
type Service struct {
	store      Store
	tokens     *Issuer
	mailer     Mailer
	google     GoogleVerifier
	refreshTTL time.Duration
	otpTTL     time.Duration
	production bool
	now        func() time.Time
	warn       func(msg string, fields map[string]any)
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithMailer sets the OTP mail transport.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) { s.mailer = m }
}

// WithGoogleVerifier sets the external identity verifier.
func WithGoogleVerifier(v GoogleVerifier) ServiceOption {
	return func(s *Service) { s.google = v }
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithOTPTTL overrides the reset-code lifetime.
func WithOTPTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithProduction controls whether OTP codes are echoed in responses when
// mail delivery is unavailable (they are outside production only).
func WithProduction(prod bool) ServiceOption {
	return func(s *Service) { s.production = prod }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithWarnFunc overrides the sink for recovered non-fatal failures.
func WithWarnFunc(fn func(msg string, fields map[string]any)) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.warn = fn
		}
	}
}

// NewService constructs the auth facade.
func NewService(store Store, tokens *Issuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		store:      store,
		tokens:     tokens,
		refreshTTL: defaultRefreshTTL,
		otpTTL:     defaultOTPTTL,
		now:        time.Now,
		warn:       func(string, map[string]any) {},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignupInput carries a registration request.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	Position        string `json:"position"`
	Department      string `json:"department"`
}

// Signup registers a new user and returns its id.
func (s *Service) Signup(ctx context.Context, in SignupInput) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" ||
		in.Role == "" || in.Position == "" || in.Department == "" {
		return "", fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if !validRole(in.Role) {
		return "", fmt.Errorf("%w: unsupported role %s", ErrInvalidInput, in.Role)
	}
	if !validPosition(in.Position) {
		return "", fmt.Errorf("%w: unsupported position %s", ErrInvalidInput, in.Position)
	}
	if !validDepartment(in.Department) {
		return "", fmt.Errorf("%w: unsupported department %s", ErrInvalidInput, in.Department)
	}

	if _, err := s.store.Users().FindByEmail(ctx, in.Email); err == nil {
		return "", fmt.Errorf("%w: email already in use", ErrInvalidInput)
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if in.Password != in.ConfirmPassword {
		return "", fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	user := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Position:     in.Position,
		Department:   in.Department,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", fmt.Errorf("%w: email already in use", ErrInvalidInput)
		}
		return "", err
	}
	return user.ID, nil
}

// LoginResult is returned by Login and GoogleSignIn.
type LoginResult struct {
	UserID string      `json:"user_id"`
	Tokens TokenPair   `json:"tokens"`
	User   UserSummary `json:"user"`
}

// Login authenticates credentials and issues tokens. Unknown email and
// wrong password surface identically to avoid user enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: incorrect credentials", ErrUnauthorized)
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("%w: incorrect credentials", ErrUnauthorized)
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{UserID: user.ID, Tokens: pair, User: user.Summary()}, nil
}

// GoogleSignIn verifies an external ID token and logs the matching local
// user in, auto-provisioning one on first sight.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (*LoginResult, error) {
	if s.google == nil {
		return nil, errors.New("auth: google verifier is not configured")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google token verification failed", ErrUnauthorized)
	}
	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{UserID: user.ID, Tokens: pair, User: user.Summary()}, nil
}

func (s *Service) findOrCreateGoogleUser(ctx context.Context, identity *GoogleIdentity) (*User, error) {
	email := normalizeEmail(identity.Email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// First Google login: provision with an unusable random password.
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user = &User{
		Name:           identity.Name,
		Email:          email,
		PasswordHash:   hash,
		Role:           RoleEmployee,
		Position:       PositionOperator,
		Department:     DepartmentAdministration,
		GoogleID:       identity.Subject,
		ProfilePicture: identity.Picture,
		OTPVerified:    true,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword is the authenticated self-service flow: the current
// password must match and the new one must differ.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidInput)
	}
	if next == current {
		return fmt.Errorf("%w: new password must differ from the current one", ErrInvalidInput)
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	return s.store.Users().Update(ctx, user)
}

// Profile returns the user's own record.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.store.Users().Find(ctx, userID)
}

// ProfileUpdate is the self-updatable field set.
type ProfileUpdate struct {
	Name       *string `json:"name"`
	Position   *string `json:"position"`
	Department *string `json:"department"`
}

// UpdateProfile applies the restricted self-service field set.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*User, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		user.Name = name
	}
	if upd.Position != nil {
		if !validPosition(*upd.Position) {
			return nil, fmt.Errorf("%w: unsupported position %s", ErrInvalidInput, *upd.Position)
		}
		user.Position = *upd.Position
	}
	if upd.Department != nil {
		if !validDepartment(*upd.Department) {
			return nil, fmt.Errorf("%w: unsupported department %s", ErrInvalidInput, *upd.Department)
		}
		user.Department = *upd.Department
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserPage is a page of an admin user listing.
type UserPage struct {
	Users      []*User    `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// ListUsers returns a filtered, paginated listing. Admin only.
func (s *Service) ListUsers(ctx context.Context, requestingUserID string, filter ListFilter) (*UserPage, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	users, total, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &UserPage{
		Users: users,
		Pagination: Pagination{
			CurrentPage: filter.Page,
			TotalPages:  totalPages,
			TotalUsers:  total,
			HasNext:     filter.Page < totalPages,
			HasPrev:     filter.Page > 1,
		},
	}, nil
}

// GetUser returns a single user. Allowed for admins and for self-lookups.
func (s *Service) GetUser(ctx context.Context, userID, requestingUserID string) (*User, error) {
	if userID != requestingUserID {
		if err := s.requireAdmin(ctx, requestingUserID); err != nil {
			return nil, err
		}
	}
	return s.store.Users().Find(ctx, userID)
}

// UpdateResult reports an admin update along with the applied field names.
type UserUpdateResult struct {
	User          *User    `json:"user"`
	UpdatedFields []string `json:"updated_fields"`
}

// UpdateUser applies a typed partial update. Self-updatable fields pass for
// everyone; admin-tier fields (role, active, email, password) require an
// admin caller, and self-protection rules block admins from demoting or
// deactivating their own account.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate, requestingUserID string) (*UserUpdateResult, error) {
	isAdmin, err := s.isAdmin(ctx, requestingUserID)
	if err != nil {
		return nil, err
	}
	isSelf := userID == requestingUserID

	if !isAdmin {
		if !isSelf {
			return nil, fmt.Errorf("%w: only administrators can update other users", ErrForbidden)
		}
		for field, set := range map[string]bool{
			"role":     upd.Role != nil,
			"active":   upd.Active != nil,
			"email":    upd.Email != nil,
			"password": upd.Password != nil,
		} {
			if set {
				return nil, fmt.Errorf("%w: only administrators can update field: %s", ErrForbidden, field)
			}
		}
	}

	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if isSelf && isAdmin {
		if upd.Role != nil && *upd.Role != RoleAdmin {
			return nil, fmt.Errorf("%w: you cannot change your own administrator role", ErrInvalidInput)
		}
		if upd.Active != nil && !*upd.Active {
			return nil, fmt.Errorf("%w: you cannot deactivate your own account", ErrInvalidInput)
		}
	}

	var updated []string
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		user.Name = name
		updated = append(updated, "name")
	}
	if upd.Position != nil {
		if !validPosition(*upd.Position) {
			return nil, fmt.Errorf("%w: unsupported position %s", ErrInvalidInput, *upd.Position)
		}
		user.Position = *upd.Position
		updated = append(updated, "position")
	}
	if upd.Department != nil {
		if !validDepartment(*upd.Department) {
			return nil, fmt.Errorf("%w: unsupported department %s", ErrInvalidInput, *upd.Department)
		}
		user.Department = *upd.Department
		updated = append(updated, "department")
	}
	if upd.Role != nil {
		if !validRole(*upd.Role) {
			return nil, fmt.Errorf("%w: unsupported role %s", ErrInvalidInput, *upd.Role)
		}
		user.Role = *upd.Role
		updated = append(updated, "role")
	}
	if upd.Active != nil {
		user.Active = *upd.Active
		updated = append(updated, "active")
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		if email != user.Email {
			if other, err := s.store.Users().FindByEmail(ctx, email); err == nil && other.ID != userID {
				return nil, fmt.Errorf("%w: email already in use by another user", ErrInvalidInput)
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		user.Email = email
		updated = append(updated, "email")
	}
	// Admin password override never applies to the admin's own account.
	if upd.Password != nil && isAdmin && !isSelf {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		updated = append(updated, "password")
	}

	if len(updated) == 0 {
		return nil, fmt.Errorf("%w: no valid fields provided for update", ErrInvalidInput)
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: email already in use by another user", ErrInvalidInput)
		}
		return nil, err
	}
	return &UserUpdateResult{User: user, UpdatedFields: updated}, nil
}

// DeleteUser removes a user and cascades its refresh and reset tokens.
// Admin only; self-deletion is blocked.
func (s *Service) DeleteUser(ctx context.Context, userID, requestingUserID string) (*User, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userID == requestingUserID {
		return nil, fmt.Errorf("%w: you cannot delete your own account", ErrInvalidInput)
	}
	if err := s.store.RefreshTokens().DeleteByUser(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.store.ResetTokens().DeleteByUser(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.store.Users().Delete(ctx, userID); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleUserStatus flips the active flag. Admin only; self-toggle is blocked.
func (s *Service) ToggleUserStatus(ctx context.Context, userID, requestingUserID string) (*User, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userID == requestingUserID {
		return nil, fmt.Errorf("%w: you cannot deactivate your own account", ErrInvalidInput)
	}
	user.Active = !user.Active
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateRoleInput carries a named permission bundle.
type CreateRoleInput struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// CreateRole registers a named permission role. Admin only.
func (s *Service) CreateRole(ctx context.Context, requestingUserID string, in CreateRoleInput) (*Role, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	for _, p := range in.Permissions {
		if !validResource(p.Resource) {
			return nil, fmt.Errorf("%w: unsupported resource %s", ErrInvalidInput, p.Resource)
		}
		for _, action := range p.Actions {
			if !validAction(action) {
				return nil, fmt.Errorf("%w: unsupported action %s", ErrInvalidInput, action)
			}
		}
	}
	if _, err := s.store.Roles().FindByName(ctx, in.Name); err == nil {
		return nil, fmt.Errorf("%w: role name already in use", ErrInvalidInput)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	role := &Role{
		Name:        in.Name,
		Permissions: in.Permissions,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: role name already in use", ErrInvalidInput)
		}
		return nil, err
	}
	return role, nil
}

// ListRoles returns every named role. Admin only.
func (s *Service) ListRoles(ctx context.Context, requestingUserID string) ([]*Role, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	return s.store.Roles().List(ctx)
}

// AssignRole binds a user to a named role; an empty name clears the binding.
// Admin only.
func (s *Service) AssignRole(ctx context.Context, userID, roleName, requestingUserID string) (*User, error) {
	if err := s.requireAdmin(ctx, requestingUserID); err != nil {
		return nil, err
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		user.RoleID = ""
	} else {
		role, err := s.store.Roles().FindByName(ctx, roleName)
		if err != nil {
			return nil, err
		}
		user.RoleID = role.ID
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issueTokens(ctx context.Context, user *User) (TokenPair, error) {
	access, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh := NewRefreshToken()
	rec := &RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().UTC().Add(s.refreshTTL),
	}
	if err := s.store.RefreshTokens().Upsert(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) isAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == RoleAdmin, nil
}

func (s *Service) requireAdmin(ctx context.Context, userID string) error {
	isAdmin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: only administrators can perform this operation", ErrForbidden)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
