package service

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

// ParseRole: всё, кроме admin, считается покупателем.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Principal — вызывающий пользователь; кладётся в контекст auth-middleware.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Customer и Admin — короткие конструкторы контекста для cli и тестов.
func Customer(ctx context.Context, userID uuid.UUID) context.Context {
	return WithPrincipal(ctx, Principal{UserID: userID, Role: RoleCustomer})
}

func Admin(ctx context.Context, userID uuid.UUID) context.Context {
	return WithPrincipal(ctx, Principal{UserID: userID, Role: RoleAdmin})
}

func requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == uuid.Nil {
		return uuid.Nil, "", ErrUnauthorized
	}
	if p.Role == "" {
		p.Role = RoleCustomer
	}
	return p.UserID, p.Role, nil
}

func requireAdmin(ctx context.Context) error {
	_, role, err := requireAuth(ctx)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
