package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rebano/rebano-go/internal/crypto"
	"github.com/rebano/rebano-go/internal/model"
	"github.com/rebano/rebano-go/internal/repository"
	"github.com/rebano/rebano-go/internal/validation"
)

// ProviderError is an auth provider failure, reported to clients as
// {"error":{"code":Status,"message":"CODE : Detail"}}.
type ProviderError struct {
	Status int
	Code   string
	Detail string
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return e.Code + " : " + e.Detail
	}
	return e.Code
}

var (
	ErrEmailExists        = &ProviderError{Status: http.StatusBadRequest, Code: "EMAIL_EXISTS"}
	ErrInvalidEmail       = &ProviderError{Status: http.StatusBadRequest, Code: "INVALID_EMAIL"}
	ErrMissingPassword    = &ProviderError{Status: http.StatusBadRequest, Code: "MISSING_PASSWORD"}
	ErrWeakPassword       = &ProviderError{Status: http.StatusBadRequest, Code: "WEAK_PASSWORD", Detail: "Password should be at least 6 characters"}
	ErrInvalidCredentials = &ProviderError{Status: http.StatusBadRequest, Code: "INVALID_LOGIN_CREDENTIALS"}
	ErrInvalidIDToken     = &ProviderError{Status: http.StatusBadRequest, Code: "INVALID_ID_TOKEN"}
)

// AuthService is the account provider and the profile endpoints.
type AuthService struct {
	users     *repository.UserRepository
	hasher    *crypto.Hasher
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, hasher *crypto.Hasher, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		hasher:    hasher,
		jwtSecret: secret,
		jwtExpiry: expiry,
	}
}

// SignUp creates an account and returns a signed-in account.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (model.Account, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := signUpError(validation.Struct(req)); err != nil {
		return model.Account{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.Account{}, err
	}

	user := &model.User{
		UID:      uuid.NewString(),
		Email:    req.Email,
		Name:     strings.TrimSpace(req.DisplayName),
		Role:     model.RoleAdmin,
		AuthHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.Account{}, ErrEmailExists
		}
		return model.Account{}, err
	}

	return s.account(user)
}

// signUpError maps validation failures to provider codes.
func signUpError(err error) error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err
	}
	for _, v := range verr.Violations {
		if v.Field == "email" {
			return ErrInvalidEmail
		}
	}
	for _, v := range verr.Violations {
		if v.Field == "password" && v.Rule == "required" {
			return ErrMissingPassword
		}
	}
	return ErrWeakPassword
}

// SignIn checks a password and returns a signed-in account.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest) (model.Account, error) {
	if req.Password == "" {
		return model.Account{}, ErrMissingPassword
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Account{}, ErrInvalidCredentials
		}
		return model.Account{}, err
	}
	if user.AuthHash == "" {
		// Profile created without a password.
		return model.Account{}, ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(req.Password, user.AuthHash)
	if err != nil {
		return model.Account{}, err
	}
	if !match {
		return model.Account{}, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.AuthHash) {
		if hash, err := s.hasher.Hash(req.Password); err == nil {
			if err := s.users.UpdateHash(ctx, user.UID, hash); err != nil {
				slog.Warn("password rehash failed", "uid", user.UID, "error", err)
			}
		}
	}

	return s.account(user)
}

// Lookup returns the account an ID token was issued for.
func (s *AuthService) Lookup(ctx context.Context, idToken string) (model.LookupResponse, error) {
	claims, err := crypto.ValidateToken(idToken, s.jwtSecret)
	if err != nil {
		return model.LookupResponse{}, ErrInvalidIDToken
	}
	user, err := s.users.GetByUID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.LookupResponse{}, ErrInvalidIDToken
		}
		return model.LookupResponse{}, err
	}
	return model.LookupResponse{Users: []model.Account{{
		LocalID:     user.UID,
		Email:       user.Email,
		DisplayName: user.Name,
	}}}, nil
}

// CreateAdmin creates or refreshes the profile of a provider account.
func (s *AuthService) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (model.Profile, error) {
	if err := validation.Struct(req); err != nil {
		return model.Profile{}, err
	}
	user := &model.User{
		UID:   req.UID,
		Email: strings.TrimSpace(strings.ToLower(req.Email)),
		Name:  strings.TrimSpace(req.Name),
		Role:  model.RoleAdmin,
	}
	if err := s.users.UpsertProfile(ctx, user); err != nil {
		return model.Profile{}, err
	}

	stored, err := s.users.GetByUID(ctx, user.UID)
	if err != nil {
		return model.Profile{}, err
	}
	return stored.Profile(), nil
}

// Verify reports whether token is valid and, if so, whose it is.
func (s *AuthService) Verify(ctx context.Context, token string) (model.VerifyResponse, error) {
	claims, err := crypto.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return model.VerifyResponse{Valid: false}, nil
	}

	user, err := s.users.GetByUID(ctx, claims.Subject)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		id := claims.Identity()
		return model.VerifyResponse{Valid: true, User: &model.Profile{
			UID: id.UID, Email: id.Email, Name: id.Name, Role: model.RoleAdmin,
		}}, nil
	case err != nil:
		return model.VerifyResponse{}, err
	}
	p := user.Profile()
	return model.VerifyResponse{Valid: true, User: &p}, nil
}

func (s *AuthService) account(user *model.User) (model.Account, error) {
	token, err := crypto.GenerateToken(crypto.Identity{UID: user.UID, Email: user.Email, Name: user.Name}, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.Account{}, fmt.Errorf("issuing token: %w", err)
	}
	return model.Account{
		IDToken:     token,
		LocalID:     user.UID,
		Email:       user.Email,
		DisplayName: user.Name,
		ExpiresIn:   strconv.Itoa(int(s.jwtExpiry.Seconds())),
	}, nil
}
