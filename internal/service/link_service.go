package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"linkhub/internal/domain"
	"linkhub/internal/provider"
	"linkhub/internal/repository"
)

// LinkService orquesta un intento de vinculación: gateway primero, store
// después. No existe estado intermedio persistido; el único efecto durable
// es la fila en linked_accounts y solo se escribe si el gateway tuvo éxito.
type LinkService struct {
	logger   *zap.Logger
	gateway  provider.Gateway
	accounts repository.LinkedAccountRepository
	provider string
}

var ErrAccountNotFound = errors.New("linked account not found")

// Estados del intento; el intento es transitorio y se descarta al reportar
// el resultado.
type attemptState string

const (
	attemptPending      attemptState = "pending"
	attemptProviderCall attemptState = "provider_call"
	attemptLinked       attemptState = "linked"
	attemptFailed       attemptState = "failed"
)

func NewLinkService(logger *zap.Logger, gateway provider.Gateway, accounts repository.LinkedAccountRepository) *LinkService {
	return &LinkService{
		logger:   logger,
		gateway:  gateway,
		accounts: accounts,
		provider: "linkedin",
	}
}

// Link ejecuta el intento completo para un usuario ya autenticado.
func (s *LinkService) Link(ctx context.Context, userID string, req domain.LinkRequest) (domain.LinkedAccount, error) {
	if s.gateway == nil || s.accounts == nil {
		return domain.LinkedAccount{}, errors.New("link service not configured")
	}

	s.logAttempt(userID, req.Method, attemptPending, nil)
	// Validación local antes de cualquier round-trip al proveedor.
	if err := req.Validate(); err != nil {
		s.logAttempt(userID, req.Method, attemptFailed, err)
		return domain.LinkedAccount{}, err
	}

	s.logAttempt(userID, req.Method, attemptProviderCall, nil)
	ref, err := s.gateway.Link(ctx, req)
	if err != nil {
		s.logAttempt(userID, req.Method, attemptFailed, err)
		return domain.LinkedAccount{}, err
	}

	account := domain.LinkedAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		Provider:          s.provider,
		ProviderAccountID: ref.AccountID,
		DisplayName:       ref.DisplayName,
		Method:            req.Method,
		CreatedAt:         time.Now().UTC(),
	}
	stored, err := s.accounts.Upsert(ctx, account)
	if err != nil {
		s.logAttempt(userID, req.Method, attemptFailed, err)
		return domain.LinkedAccount{}, err
	}

	s.logAttempt(userID, req.Method, attemptLinked, nil)
	return stored, nil
}

// List devuelve las cuentas del usuario ordenadas por fecha de creación.
// Siempre lee fresco del store: el conjunto cambia por borrados concurrentes.
func (s *LinkService) List(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	if s.accounts == nil {
		return nil, errors.New("link service not configured")
	}
	return s.accounts.ListByUser(ctx, userID)
}

// Remove desvincula una cuenta del usuario. La cuenta de otro usuario se
// reporta como inexistente.
func (s *LinkService) Remove(ctx context.Context, userID, accountID string) error {
	if s.accounts == nil {
		return errors.New("link service not configured")
	}
	err := s.accounts.Delete(ctx, userID, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountNotFound
	}
	return err
}

// logAttempt registra transiciones sin tocar jamás el secreto del request.
func (s *LinkService) logAttempt(userID string, method domain.LinkMethod, state attemptState, err error) {
	if s.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("method", string(method)),
		zap.String("state", string(state)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err), zap.Bool("retryable", provider.Retryable(err)))
		s.logger.Warn("link attempt", fields...)
		return
	}
	s.logger.Info("link attempt", fields...)
}
