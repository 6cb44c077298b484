package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"staffhub.org/internal/ids"
)

const otpDigits = 4

// ResetRequestResult reports an issued OTP. Code is populated outside
// production so the flow stays testable when mail delivery is unavailable.
type ResetRequestResult struct {
	UserID    string `json:"user_id"`
	EmailSent bool   `json:"email_sent"`
	Code      string `json:"otp,omitempty"`
}

// RequestPasswordReset starts the recovery flow: it invalidates any prior
// OTP for the user, persists a fresh code with a bounded lifetime and
// attempts mail delivery. A delivery failure is downgraded to a warning; the
// OTP stays usable either way.
//
// Unknown emails return ErrNotFound. This mirrors the legacy surface and is
// a deliberate enumeration trade-off on the recovery path (see DESIGN.md).
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if err := s.store.ResetTokens().DeleteByUser(ctx, user.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	rec := &ResetToken{
		ID:        ids.New(),
		UserID:    user.ID,
		OTP:       code,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.store.ResetTokens().Create(ctx, rec); err != nil {
		return nil, err
	}

	result := &ResetRequestResult{UserID: user.ID}
	if s.mailer != nil {
		if err := s.mailer.SendPasswordResetOTP(ctx, user.Email, code); err != nil {
			s.warn("password reset mail delivery failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		} else {
			result.EmailSent = true
		}
	}
	if !s.production {
		result.Code = code
	}
	return result, nil
}

// VerifyOTP checks a code without consuming it, enabling the two-step
// verify-then-reset flow. subject may be a user id or an email.
func (s *Service) VerifyOTP(ctx context.Context, subject, code string) error {
	user, err := s.findBySubject(ctx, subject)
	if err != nil {
		return err
	}
	if _, err := s.store.ResetTokens().FindValid(ctx, user.ID, code, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired OTP", ErrInvalidInput)
		}
		return err
	}
	return nil
}

// ResetPassword finalizes the recovery flow. It requires a still-unexpired
// OTP for the user regardless of whether VerifyOTP was ever called, then
// stores the new password hash and consumes every OTP for the user.
func (s *Service) ResetPassword(ctx context.Context, subject, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	user, err := s.findBySubject(ctx, subject)
	if err != nil {
		return err
	}
	ok, err := s.store.ResetTokens().AnyValid(ctx, user.ID, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no valid reset token found, request a new password reset", ErrInvalidInput)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.OTPVerified = true
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}
	return s.store.ResetTokens().DeleteByUser(ctx, user.ID)
}

// findBySubject resolves a user from either an internal id or an email.
func (s *Service) findBySubject(ctx context.Context, subject string) (*User, error) {
	if ids.Valid(subject) {
		return s.store.Users().Find(ctx, subject)
	}
	return s.store.Users().FindByEmail(ctx, normalizeEmail(subject))
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
