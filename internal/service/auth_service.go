package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"zylorb/internal/event"
	"zylorb/internal/metrics"
	"zylorb/internal/model"
	"zylorb/internal/password"
	"zylorb/internal/token"
	"zylorb/pkg/apierror"
)

// AccountStore is the persistence the gateway needs. Insert must reject a
// duplicate username or email atomically with model.ErrDuplicateAccount.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (model.Account, error)
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	FindByUsername(ctx context.Context, username string) (model.Account, error)
	Insert(ctx context.Context, account model.Account) error
	Update(ctx context.Context, account model.Account) error
}

type TokenCodec interface {
	Mint(account model.Account) (string, error)
	Validate(tokenString string) (token.Claims, error)
}

type AuthService struct {
	accounts AccountStore
	hasher   password.Hasher
	tokens   TokenCodec
	events   event.Publisher
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time

	// decoyDigest is verified against when the email is unknown, so both
	// login failures cost one hash.
	decoyDigest string
}

func NewAuthService(accounts AccountStore, hasher password.Hasher, tokens TokenCodec, events event.Publisher) (*AuthService, error) {
	if accounts == nil || hasher == nil || tokens == nil {
		return nil, errors.New("auth service requires an account store, a hasher and a token codec")
	}

	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy digest: %w", err)
	}

	return &AuthService{
		accounts:    accounts,
		hasher:      hasher,
		tokens:      tokens,
		events:      events,
		validate:    newValidator(),
		now:         time.Now,
		decoyDigest: decoy,
	}, nil
}

func (s *AuthService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validate.Struct(req); err != nil {
		s.metrics.Auth("register", "invalid")
		return model.AuthResult{}, validationError(err)
	}

	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return model.AuthResult{}, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			s.metrics.Auth("register", "invalid")
			return model.AuthResult{}, apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "Password must be at most 72 bytes", "password", http.StatusBadRequest)
		}
		return model.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := model.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: digest,
		Avatar:       model.DefaultAvatar,
		Zone:         model.DefaultZone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			s.metrics.Auth("register", "duplicate")
			return model.AuthResult{}, duplicateError()
		}
		s.metrics.Auth("register", "error")
		return model.AuthResult{}, fmt.Errorf("register: %w", err)
	}

	result, err := s.issue(account)
	if err != nil {
		return model.AuthResult{}, err
	}

	s.metrics.Auth("register", "success")
	s.publish(event.TypeAccountRegistered, account)
	slog.InfoContext(ctx, "account registered", "account_id", account.ID, "username", account.Username)

	return result, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username string, email string) error {
	lookups := []func() (model.Account, error){
		func() (model.Account, error) { return s.accounts.FindByEmail(ctx, email) },
		func() (model.Account, error) { return s.accounts.FindByUsername(ctx, username) },
	}

	for _, lookup := range lookups {
		_, err := lookup()
		switch {
		case err == nil:
			s.metrics.Auth("register", "duplicate")
			return duplicateError()
		case errors.Is(err, model.ErrAccountNotFound):
		default:
			s.metrics.Auth("register", "error")
			return fmt.Errorf("register: %w", err)
		}
	}

	return nil
}

// Login answers an unknown email and a wrong password with the same error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validate.Struct(req); err != nil {
		s.metrics.Auth("login", "invalid")
		return model.AuthResult{}, apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "Email and password are required", "", http.StatusBadRequest)
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, model.ErrAccountNotFound) {
		s.metrics.Auth("login", "error")
		return model.AuthResult{}, fmt.Errorf("login: %w", err)
	}

	if err != nil {
		s.hasher.Verify(req.Password, s.decoyDigest)
		return model.AuthResult{}, s.loginFailed(ctx, "unknown_email")
	}
	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		return model.AuthResult{}, s.loginFailed(ctx, "password_mismatch")
	}

	result, err := s.issue(account)
	if err != nil {
		return model.AuthResult{}, err
	}

	s.metrics.Auth("login", "success")
	s.publish(event.TypeAccountLogin, account)
	slog.InfoContext(ctx, "login succeeded", "account_id", account.ID)

	return result, nil
}

func (s *AuthService) loginFailed(ctx context.Context, reason string) error {
	s.metrics.Auth("login", "invalid_credentials")
	slog.WarnContext(ctx, "login failed", "reason", reason)
	return apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "Invalid email or password", "", http.StatusBadRequest)
}

// Authenticate resolves a bearer token to a live account. Token failures are
// returned as the codec reported them; a token whose account is gone yields
// model.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (model.Account, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		s.metrics.Auth("authenticate", "invalid_token")
		return model.Account{}, err
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID())
	if errors.Is(err, model.ErrAccountNotFound) {
		s.metrics.Auth("authenticate", "unknown_account")
		return model.Account{}, apierror.Wrap(model.ErrUnauthorized, "UNAUTHORIZED", "User not found", "", http.StatusUnauthorized)
	}
	if err != nil {
		s.metrics.Auth("authenticate", "error")
		return model.Account{}, fmt.Errorf("authenticate: %w", err)
	}

	s.metrics.Auth("authenticate", "success")
	return account, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, accountID string, req model.ProfileUpdateRequest) (model.PublicAccount, error) {
	if req.Avatar != nil {
		trimmed := strings.TrimSpace(*req.Avatar)
		req.Avatar = &trimmed
	}
	if req.Zone != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Zone))
		req.Zone = &normalized
	}

	if err := s.validate.Struct(req); err != nil {
		return model.PublicAccount{}, validationError(err)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.PublicAccount{}, apierror.Wrap(model.ErrUnauthorized, "UNAUTHORIZED", "User not found", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.PublicAccount{}, fmt.Errorf("update profile: %w", err)
	}

	if req.Avatar != nil {
		account.Avatar = *req.Avatar
	}
	if req.Zone != nil {
		account.Zone = *req.Zone
	}
	account.UpdatedAt = s.now().UTC()

	if err := s.accounts.Update(ctx, account); err != nil {
		return model.PublicAccount{}, fmt.Errorf("update profile: %w", err)
	}

	s.publish(event.TypeAccountUpdated, account)
	return account.Public(), nil
}

func (s *AuthService) issue(account model.Account) (model.AuthResult, error) {
	tok, err := s.tokens.Mint(account)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("mint token: %w", err)
	}
	return model.AuthResult{Token: tok, User: account.Public()}, nil
}

func (s *AuthService) publish(t event.Type, account model.Account) {
	if s.events == nil {
		return
	}
	s.events.Publish(event.New(t, account.ID, account.Public()))
}

func duplicateError() error {
	return apierror.Wrap(model.ErrDuplicateAccount, "DUPLICATE_ACCOUNT", "User already exists with this email or username", "", http.StatusBadRequest)
}
