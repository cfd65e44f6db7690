package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/rebano/rebano-go/internal/gateway"
	"github.com/rebano/rebano-go/internal/notify"
)

// Poster sends a JSON body through the remote API gateway.
type Poster interface {
	Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
}

// User is the profile the API keeps for an account.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session drives login, registration and logout.
type Session struct {
	provider *Client
	api      Poster
	tokens   gateway.TokenStore
	notifier notify.Notifier
	log      *slog.Logger
	lang     language.Tag
}

// NewSession wires a Session. api is used for the profile endpoints.
func NewSession(provider *Client, api Poster, tokens gateway.TokenStore, notifier notify.Notifier, logger *slog.Logger, lang language.Tag) *Session {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		provider: provider,
		api:      api,
		tokens:   tokens,
		notifier: notifier,
		log:      logger,
		lang:     lang,
	}
}

// Login signs in and stores the credential. The profile is then created or
// refreshed on a best-effort basis.
func (s *Session) Login(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.report("Error al iniciar sesión: ", err)
		return nil, err
	}
	if err := s.tokens.SetToken(acct.IDToken); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	s.ensureProfile(ctx, acct, "")
	s.log.Info("signed in", "uid", acct.LocalID)
	s.notifier.Notify(notify.KindSuccess, "¡Bienvenido!")
	return acct, nil
}

// Register creates the account and its profile. It does not sign in.
func (s *Session) Register(ctx context.Context, name, email, password string) (*Account, error) {
	acct, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		s.report("Error al crear cuenta: ", err)
		return nil, err
	}

	s.ensureProfile(ctx, acct, name)
	s.log.Info("account created", "uid", acct.LocalID)
	s.notifier.Notify(notify.KindSuccess, "¡Cuenta creada exitosamente! Ahora puedes iniciar sesión.")
	return acct, nil
}

// Logout discards the credential.
func (s *Session) Logout() error {
	if err := s.tokens.ClearToken(); err != nil {
		return err
	}
	s.notifier.Notify(notify.KindInfo, "Sesión cerrada correctamente")
	return nil
}

// Restore checks a persisted credential with the API. It reports false,
// and forgets the credential, when there is none or it is no longer valid.
func (s *Session) Restore(ctx context.Context) (*User, bool, error) {
	token, ok := s.tokens.Token()
	if !ok {
		return nil, false, nil
	}

	raw, err := s.api.Post(ctx, "/auth/verify", map[string]string{"token": token})
	if errors.Is(err, gateway.ErrSessionExpired) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp struct {
		Valid bool  `json:"valid"`
		User  *User `json:"user"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("decoding verify response: %w", err)
	}
	if !resp.Valid || resp.User == nil {
		if err := s.tokens.ClearToken(); err != nil {
			s.log.Warn("clearing credential failed", "error", err)
		}
		return nil, false, nil
	}
	return resp.User, true, nil
}

// Whoami returns the provider account of the stored credential.
func (s *Session) Whoami(ctx context.Context) (*Account, error) {
	token, ok := s.tokens.Token()
	if !ok {
		return nil, gateway.ErrSessionExpired
	}
	return s.provider.Lookup(ctx, token)
}

// ensureProfile creates the API profile for acct. Failures are logged only:
// a valid credential is enough to proceed.
func (s *Session) ensureProfile(ctx context.Context, acct *Account, name string) {
	if name == "" {
		name = acct.DisplayName
	}
	_, err := s.api.Post(ctx, "/auth/create-admin", map[string]string{
		"email": acct.Email,
		"name":  name,
		"uid":   acct.LocalID,
	})
	if err != nil {
		s.log.Warn("creating profile failed", "uid", acct.LocalID, "error", err)
	}
}

func (s *Session) report(prefix string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.notifier.Notify(notify.KindDanger, prefix+Message(err, s.lang))
}
