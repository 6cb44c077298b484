package auth_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"staffhub.org/internal/auth"
)

func requestOTP(t *testing.T, svc *auth.Service, email string) *auth.ResetRequestResult {
	t.Helper()
	res, err := svc.RequestPasswordReset(context.Background(), email)
	if err != nil {
		t.Fatalf("request password reset: %v", err)
	}
	return res
}

func TestRequestPasswordResetIssuesFourDigitCode(t *testing.T) {
	svc, _ := newTestService(t)
	signupUser(t, svc, validSignup("a@x.com"))

	res := requestOTP(t, svc, "a@x.com")
	if !regexp.MustCompile(`^\d{4}$`).MatchString(res.Code) {
		t.Fatalf("expected a 4-digit code outside production, got %q", res.Code)
	}
	if res.EmailSent {
		t.Fatal("no mailer configured, email_sent must be false")
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.RequestPasswordReset(context.Background(), "nobody@x.com"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductionHidesOTP(t *testing.T) {
	svc, _ := newTestService(t, auth.WithProduction(true))
	signupUser(t, svc, validSignup("a@x.com"))

	res := requestOTP(t, svc, "a@x.com")
	if res.Code != "" {
		t.Fatal("production mode must not echo the OTP")
	}
}

func TestSecondOTPInvalidatesFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))

	first := requestOTP(t, svc, "a@x.com")
	second := requestOTP(t, svc, "a@x.com")

	if first.Code != second.Code {
		if err := svc.VerifyOTP(ctx, id, first.Code); !errors.Is(err, auth.ErrInvalidInput) {
			t.Fatalf("first OTP must be invalid after reissue, got %v", err)
		}
	}
	if err := svc.VerifyOTP(ctx, id, second.Code); err != nil {
		t.Fatalf("second OTP must verify: %v", err)
	}
}

func TestVerifyOTPDoesNotConsume(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))
	res := requestOTP(t, svc, "a@x.com")

	for i := 0; i < 3; i++ {
		if err := svc.VerifyOTP(ctx, id, res.Code); err != nil {
			t.Fatalf("verify attempt %d: %v", i+1, err)
		}
	}
}

func TestVerifyOTPBySubjectForms(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))
	res := requestOTP(t, svc, "a@x.com")

	if err := svc.VerifyOTP(ctx, id, res.Code); err != nil {
		t.Fatalf("verify by id: %v", err)
	}
	if err := svc.VerifyOTP(ctx, "a@x.com", res.Code); err != nil {
		t.Fatalf("verify by email: %v", err)
	}
	if err := svc.VerifyOTP(ctx, "nobody@x.com", res.Code); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown subject, got %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	var mu sync.Mutex
	svc, _ := newTestService(t, auth.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock()
	}))
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))
	res := requestOTP(t, svc, "a@x.com")

	mu.Lock()
	clock = func() time.Time { return now.Add(61 * time.Minute) }
	mu.Unlock()

	if err := svc.VerifyOTP(ctx, id, res.Code); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput after expiry, got %v", err)
	}
}

func TestResetPasswordRequiresLiveOTP(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))

	if err := svc.ResetPassword(ctx, id, "newpass1"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput with no OTP issued, got %v", err)
	}
}

func TestResetPasswordConsumesAllOTPs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))
	res := requestOTP(t, svc, "a@x.com")

	// Reset without a prior verify call: a live OTP is all that is required.
	if err := svc.ResetPassword(ctx, id, "newpass1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if err := svc.VerifyOTP(ctx, id, res.Code); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("stale OTP must no longer verify, got %v", err)
	}
	if err := svc.ResetPassword(ctx, id, "another1"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("second reset without a fresh OTP must fail, got %v", err)
	}

	if _, err := svc.Login(ctx, "a@x.com", "secret1"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatal("old password must stop working after reset")
	}
	if _, err := svc.Login(ctx, "a@x.com", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetPasswordSetsOTPVerified(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	id := signupUser(t, svc, validSignup("a@x.com"))
	requestOTP(t, svc, "a@x.com")

	if err := svc.ResetPassword(ctx, id, "newpass1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	user, err := store.Users().Find(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !user.OTPVerified {
		t.Fatal("expected otp_verified flag after reset")
	}
}

type failingMailer struct{}

func (failingMailer) SendPasswordResetOTP(ctx context.Context, to, otp string) error {
	return errors.New("smtp unreachable")
}

func TestMailFailureDoesNotFailRequest(t *testing.T) {
	var warned bool
	svc, _ := newTestService(t,
		auth.WithMailer(failingMailer{}),
		auth.WithWarnFunc(func(msg string, fields map[string]any) { warned = true }),
	)
	id := signupUser(t, svc, validSignup("a@x.com"))

	res := requestOTP(t, svc, "a@x.com")
	if res.EmailSent {
		t.Fatal("email_sent must be false on delivery failure")
	}
	if !warned {
		t.Fatal("delivery failure must be downgraded to a warning")
	}
	// The OTP stays usable either way.
	if err := svc.VerifyOTP(context.Background(), id, res.Code); err != nil {
		t.Fatalf("verify after mail failure: %v", err)
	}
}
