// Package services defines service interfaces for the notes service.
package services

import (
	"context"
	"errors"

	"notedesk/internal/notes/domain/entities"
)

// Ошибки, связанные с идентификацией пользователя.
var (
	ErrNoIdentity      = errors.New("no authenticated user")
	ErrInvalidJWTToken = errors.New("invalid JWT token")
	ErrExpiredJWTToken = errors.New("JWT token has expired")
)

// IdentityProvider сообщает, кто выполняет текущую операцию.
type IdentityProvider interface {
	// CurrentUser возвращает ErrNoIdentity, если пользователь не аутентифицирован.
	CurrentUser(ctx context.Context) (*entities.Identity, error)
}

// TokenService проверяет access-токены внешнего провайдера аутентификации.
type TokenService interface {
	ValidateAccessToken(ctx context.Context, token string) (*entities.Identity, error)
}
