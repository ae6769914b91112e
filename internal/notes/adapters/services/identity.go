package services

import (
	"context"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/ports/services"
)

type identityKey struct{}

// WithIdentity кладет пользователя в контекст запроса.
func WithIdentity(ctx context.Context, identity *entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// ContextIdentity читает пользователя, положенного в контекст middleware аутентификации.
type ContextIdentity struct{}

var _ services.IdentityProvider = ContextIdentity{}

// NewContextIdentity создает провайдер идентичности на основе контекста.
func NewContextIdentity() ContextIdentity {
	return ContextIdentity{}
}

// CurrentUser возвращает services.ErrNoIdentity, если в контексте нет пользователя.
func (ContextIdentity) CurrentUser(ctx context.Context) (*entities.Identity, error) {
	identity, ok := ctx.Value(identityKey{}).(*entities.Identity)
	if !ok || identity == nil || identity.UserID == "" {
		return nil, services.ErrNoIdentity
	}
	clone := *identity
	return &clone, nil
}
