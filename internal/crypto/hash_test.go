package crypto

import (
	"errors"
	"strings"
	"testing"
)

// cheap keeps the tests fast; production uses DefaultHashParams.
var cheap = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHasherFormat(t *testing.T) {
	hash, err := NewHasher(DefaultHashParams()).Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" {
		t.Errorf("Hash() prefix = %q", strings.Join(parts[:3], "$"))
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("Hash() params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
}

func TestHasherVerify(t *testing.T) {
	h := NewHasher(cheap)
	hash, err := h.Hash("borrego123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	ok, err := h.Verify("borrego123", hash)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
	}
	ok, err = h.Verify("borrego124", hash)
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}

	again, err := h.Hash("borrego123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}
	if again == hash {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHasherVerifyUsesStoredParams(t *testing.T) {
	hash, err := NewHasher(cheap).Hash("borrego123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	h := NewHasher(DefaultHashParams())
	ok, err := h.Verify("borrego123", hash)
	if err != nil || !ok {
		t.Errorf("Verify() = %v, %v; want true, nil", ok, err)
	}
	if !h.NeedsRehash(hash) {
		t.Error("NeedsRehash() = false for a hash with other params")
	}
	if NewHasher(cheap).NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for a hash with the same params")
	}
}

func TestHasherVerifyInvalidHash(t *testing.T) {
	h := NewHasher(cheap)
	if _, err := h.Verify("password", "invalid-hash-format"); !errors.Is(err, ErrInvalidHashFormat) {
		t.Errorf("Verify() error = %v, want ErrInvalidHashFormat", err)
	}
	if _, err := h.Verify("password", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5"); !errors.Is(err, ErrIncompatibleVersion) {
		t.Errorf("Verify() error = %v, want ErrIncompatibleVersion", err)
	}
}
