package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rebano/rebano-go/internal/gateway"
	"github.com/rebano/rebano-go/internal/notify"
)

func providerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case signInPath:
			if body["password"] != "secreto" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":{"message":"INVALID_LOGIN_CREDENTIALS"}}`)
				return
			}
			io.WriteString(w, `{"idToken":"tok-1","localId":"u1","email":"ana@rancho.mx","displayName":"Ana"}`)
		case signUpPath:
			if len(body["password"].(string)) < 6 {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":{"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`)
				return
			}
			io.WriteString(w, `{"idToken":"tok-2","localId":"u2","email":"`+body["email"].(string)+`"}`)
		case lookupPath:
			if body["idToken"] != "tok-1" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":{"message":"INVALID_ID_TOKEN"}}`)
				return
			}
			io.WriteString(w, `{"users":[{"localId":"u1","email":"ana@rancho.mx","displayName":"Ana"}]}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SignInAndLookup(t *testing.T) {
	c := NewClient(providerServer(t).URL, nil)
	ctx := context.Background()

	acct, err := c.SignIn(ctx, "ana@rancho.mx", "secreto")
	require.NoError(t, err)
	assert.Equal(t, &Account{IDToken: "tok-1", LocalID: "u1", Email: "ana@rancho.mx", DisplayName: "Ana"}, acct)

	who, err := c.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", who.LocalID)

	_, err = c.Lookup(ctx, "tok-x")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "INVALID_ID_TOKEN", pe.Code)
}

func TestClient_ProviderErrors(t *testing.T) {
	c := NewClient(providerServer(t).URL, nil)

	_, err := c.SignUp(context.Background(), "ana@rancho.mx", "123", "Ana")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeWeakPassword, pe.Code)
	assert.Equal(t, "Password should be at least 6 characters", pe.Detail)
	assert.Equal(t, http.StatusBadRequest, pe.Status)

	bad := NewClient(providerServer(t).URL+"/elsewhere", nil)
	_, err = bad.SignIn(context.Background(), "a@b.c", "x")
	assert.Equal(t, http.StatusBadGateway, gateway.StatusOf(err))
}

func TestLocalized(t *testing.T) {
	tests := []struct {
		code, locale, want string
	}{
		{CodeEmailExists, "es-MX", "Este correo ya está registrado"},
		{CodeEmailExists, "en-GB", "This email is already registered"},
		{CodeInvalidCredential, "fr", "Correo o contraseña incorrectos"},
		{"QUOTA_EXCEEDED", "es", "Error de autenticación: QUOTA_EXCEEDED"},
		{"QUOTA_EXCEEDED", "en-US", "Authentication error: QUOTA_EXCEEDED"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.locale, func(t *testing.T) {
			err := &ProviderError{Code: tt.code}
			assert.Equal(t, tt.want, err.Localized(language.MustParse(tt.locale)))
		})
	}
	assert.Len(t, messages, 8)
	assert.Equal(t, "boom", Message(errors.New("boom"), language.Spanish))
}

type fakeAPI struct {
	calls  []string
	bodies []any
	err    error
	reply  string
}

func (f *fakeAPI) Post(_ context.Context, endpoint string, body any) (json.RawMessage, error) {
	f.calls = append(f.calls, endpoint)
	f.bodies = append(f.bodies, body)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.reply), nil
}

type notes struct{ kinds []notify.Kind }

func (n *notes) Notify(kind notify.Kind, _ string) { n.kinds = append(n.kinds, kind) }

func newSession(t *testing.T, api *fakeAPI) (*Session, *gateway.MemoryTokenStore, *notes) {
	t.Helper()
	tokens := gateway.NewMemoryTokenStore()
	n := &notes{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(NewClient(providerServer(t).URL, nil), api, tokens, n, logger, language.Spanish)
	return s, tokens, n
}

func TestSession_LoginSurvivesProfileFailure(t *testing.T) {
	api := &fakeAPI{err: &gateway.HTTPError{Status: http.StatusInternalServerError}}
	s, tokens, n := newSession(t, api)

	acct, err := s.Login(context.Background(), "ana@rancho.mx", "secreto")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.LocalID)

	tok, ok := tokens.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, []string{"/auth/create-admin"}, api.calls)
	assert.Equal(t, []notify.Kind{notify.KindSuccess}, n.kinds)
}

func TestSession_LoginFailure(t *testing.T) {
	api := &fakeAPI{}
	s, tokens, n := newSession(t, api)

	_, err := s.Login(context.Background(), "ana@rancho.mx", "otra")
	require.Error(t, err)
	_, ok := tokens.Token()
	assert.False(t, ok)
	assert.Empty(t, api.calls)
	assert.Equal(t, []notify.Kind{notify.KindDanger}, n.kinds)
}

func TestSession_RegisterCreatesProfile(t *testing.T) {
	api := &fakeAPI{reply: `{"message":"ok"}`}
	s, tokens, _ := newSession(t, api)

	_, err := s.Register(context.Background(), "Beto", "beto@rancho.mx", "123456")
	require.NoError(t, err)

	assert.Equal(t, []string{"/auth/create-admin"}, api.calls)
	assert.Equal(t, map[string]string{"email": "beto@rancho.mx", "name": "Beto", "uid": "u2"}, api.bodies[0])
	_, ok := tokens.Token()
	assert.False(t, ok, "registering does not sign in")
}

func TestSession_RestoreAndLogout(t *testing.T) {
	api := &fakeAPI{reply: `{"valid":true,"user":{"uid":"u1","email":"ana@rancho.mx","name":"Ana","role":"admin"}}`}
	s, tokens, _ := newSession(t, api)
	ctx := context.Background()

	_, ok, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, api.calls, "nothing to verify without a credential")

	require.NoError(t, tokens.SetToken("tok-1"))
	u, ok, err := s.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", u.Role)

	who, err := s.Whoami(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", who.DisplayName)

	api.reply = `{"valid":false}`
	_, ok, err = s.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, present := tokens.Token()
	assert.False(t, present)

	require.NoError(t, tokens.SetToken("tok-1"))
	require.NoError(t, s.Logout())
	_, present = tokens.Token()
	assert.False(t, present)
}
