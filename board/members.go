package board

import (
	"context"
	"strings"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// Members returns the project's members as of the last load.
func (e *Engine) Members() []domain.Member {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.Member(nil), e.members...)
}

// AddMember invites a user by email.
func (e *Engine) AddMember(ctx context.Context, email string) (domain.Member, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Member{}, invalid("email", "email address is required")
	}
	if !strings.Contains(email, "@") {
		return domain.Member{}, invalid("email", "email address is not valid")
	}
	m, err := e.backend.AddMember(ctx, e.ref, email)
	if err != nil {
		return domain.Member{}, &MutationError{Op: "add member", Err: err}
	}
	e.commit(func() {
		e.members = append(e.members, m)
	})
	return m, nil
}

// RemoveMember removes a member from the project.
func (e *Engine) RemoveMember(ctx context.Context, memberID string) error {
	if err := e.backend.RemoveMember(ctx, e.ref, memberID); err != nil {
		return &MutationError{Op: "remove member", Err: err}
	}
	e.commit(func() {
		kept := e.members[:0:0]
		for _, m := range e.members {
			if m.ID != memberID {
				kept = append(kept, m)
			}
		}
		e.members = kept
	})
	return nil
}
