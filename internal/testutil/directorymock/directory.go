package directorymock

import (
	"context"
	"sort"

	domain "invoice-approval-engine/internal/domain/directory"
)

var _ domain.Directory = (*Static)(nil)

// Static is an in-memory directory keyed by user id.
type Static struct {
	Roles    map[string]string // user -> role
	Managers map[string]string // user -> manager
}

func (s *Static) UsersWithRole(ctx context.Context, organizationID, role string) ([]string, error) {
	var out []string
	for user, r := range s.Roles {
		if r == role {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Static) ManagerOf(ctx context.Context, organizationID, userID string) (string, error) {
	if m, ok := s.Managers[userID]; ok && m != "" {
		return m, nil
	}
	return "", domain.ErrNoManager
}
