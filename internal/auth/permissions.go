package auth

import (
	"context"
	"errors"
	"fmt"
)

// Denial explains a failed permission check; it names the first unmet
// resource and unwraps to ErrForbidden.
type Denial struct {
	Resource string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("missing permission for resource: %s", d.Resource)
}

func (d *Denial) Unwrap() error { return ErrForbidden }

// Covers checks that every required (resource, actions) pair is covered by
// the granted set: the resource must be present and its action set must be a
// superset of the required actions. The first miss denies.
func Covers(granted, required []Permission) error {
	for _, req := range required {
		var match *Permission
		for i := range granted {
			if granted[i].Resource == req.Resource {
				match = &granted[i]
				break
			}
		}
		if match == nil {
			return &Denial{Resource: req.Resource}
		}
		for _, action := range req.Actions {
			if !containsString(match.Actions, action) {
				return &Denial{Resource: req.Resource}
			}
		}
	}
	return nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Permissions resolves the user's permission set from their role binding.
// Users without a structured role binding get an empty set (fail closed).
func (s *Service) Permissions(ctx context.Context, userID string) ([]Permission, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.RoleID == "" {
		return nil, nil
	}
	role, err := s.store.Roles().Find(ctx, user.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return role.Permissions, nil
}

// Authorize resolves the caller's permissions and checks coverage of the
// required set. A nil required slice always allows.
func (s *Service) Authorize(ctx context.Context, userID string, required []Permission) error {
	if len(required) == 0 {
		return nil
	}
	granted, err := s.Permissions(ctx, userID)
	if err != nil {
		return err
	}
	return Covers(granted, required)
}
