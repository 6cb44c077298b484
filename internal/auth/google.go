package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the subset of an ID-token payload the service needs.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates an external ID token against the configured
// audience. Swapped for a stub in tests.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// GoogleTokenVerifier verifies Google ID tokens using the tokeninfo/JWKS flow.
type GoogleTokenVerifier struct {
	ClientID string
}

func (v GoogleTokenVerifier) Verify(ctx context.Context, idTok string) (*GoogleIdentity, error) {
	if v.ClientID == "" {
		return nil, errors.New("google client id not configured")
	}
	payload, err := idtoken.Validate(ctx, idTok, v.ClientID)
	if err != nil {
		return nil, err
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("email not present in id token")
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return &GoogleIdentity{
		Subject: payload.Subject,
		Email:   email,
		Name:    name,
		Picture: picture,
	}, nil
}
