package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkhub/internal/domain"
	"linkhub/internal/repository"
)

// AuthService coordina registro, login y baja de usuarios.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	sessions *SessionService
	limiter  LoginRateLimiter
}

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too weak")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLength = 8

func NewAuthService(logger *zap.Logger, users repository.UserRepository, sessions *SessionService, limiter LoginRateLimiter) *AuthService {
	return &AuthService{
		logger:   logger,
		users:    users,
		sessions: sessions,
		limiter:  limiter,
	}
}

// Register crea el usuario y su sesión inicial como una unidad: si la sesión
// no puede emitirse, el usuario recién creado se revierte.
func (s *AuthService) Register(ctx context.Context, emailAddr, password string) (string, domain.User, error) {
	if s.users == nil || s.sessions == nil {
		return "", domain.User{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return "", domain.User{}, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return "", domain.User{}, ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", domain.User{}, ErrEmailTaken
		}
		return "", domain.User{}, err
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil && s.logger != nil {
			s.logger.Error("rollback user after session failure", zap.Error(delErr), zap.String("user_id", user.ID))
		}
		return "", domain.User{}, err
	}
	return token, user, nil
}

// Login autentica y emite una sesión nueva. El error es uniforme: no revela
// si el email existe o si la contraseña no coincide.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (string, domain.User, error) {
	if s.users == nil || s.sessions == nil {
		return "", domain.User{}, errors.New("auth service not configured")
	}

	// La contraseña se compara tal cual fue registrada; normalizarla acá
	// rompería credenciales válidas con espacios al borde.
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return "", domain.User{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if ok, wait := s.limiter.Allow(emailAddr); !ok {
			return "", domain.User{}, &RateLimitedError{RetryAfter: wait}
		}
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		return "", domain.User{}, err
	}
	if user.PasswordHash == "" {
		return "", domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

// DeleteUser borra la cuenta y revoca todas sus sesiones. Las cuentas
// vinculadas caen en cascada por FK en el esquema.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(userID); err != nil && s.logger != nil {
			s.logger.Warn("revoke sessions after user delete", zap.Error(err), zap.String("user_id", userID))
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isStrongPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// RateLimitedError indica demasiados intentos; RetryAfter informa cuánto
// falta para que la ventana libere un cupo.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// LoginRateLimiter limita la frecuencia de intentos de login por clave.
// Es una política de despliegue por encima del contrato del core; apagada
// salvo configuración explícita. Cuando deniega, devuelve el tiempo restante
// de la ventana para el Retry-After de la respuesta.
type LoginRateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type loginRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewLoginRateLimiter crea un rate limiter en memoria.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *loginRateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		// El cupo más viejo es el próximo en expirar.
		return false, kept[0].Add(l.window).Sub(now)
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true, 0
}
