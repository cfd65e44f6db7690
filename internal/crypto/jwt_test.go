package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ana = Identity{UID: "u-ana", Email: "ana@rancho.mx", Name: "Ana"}

func signClaims(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}
	return s
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(ana, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if got := claims.Identity(); got != ana {
		t.Errorf("Identity() = %+v, want %+v", got, ana)
	}
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	if _, err := GenerateToken(Identity{Email: "x@y.z"}, "test-secret", time.Hour); err == nil {
		t.Error("GenerateToken() expected error for empty uid")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	secret := "test-secret"
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "u-ana",
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "another-app"
	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-valid-token"},
		{"wrong secret", signClaims(t, Claims{RegisteredClaims: valid}, "other-secret")},
		{"wrong issuer", signClaims(t, Claims{RegisteredClaims: wrongIssuer}, secret)},
		{"wrong audience", signClaims(t, Claims{RegisteredClaims: wrongAudience}, secret)},
		{"expired", signClaims(t, Claims{RegisteredClaims: expired}, secret)},
		{"no expiry", signClaims(t, Claims{RegisteredClaims: noExpiry}, secret)},
		{"no subject", signClaims(t, Claims{RegisteredClaims: noSubject}, secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token, secret); err != ErrInvalidToken {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}

	if _, err := ValidateToken(signClaims(t, Claims{RegisteredClaims: valid}, secret), secret); err != nil {
		t.Errorf("ValidateToken() unexpected error for control token: %v", err)
	}
}
