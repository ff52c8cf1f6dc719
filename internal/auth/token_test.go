package auth

import "testing"

func TestValidateToken(t *testing.T) {
	if err := ValidateToken("short"); err == nil {
		t.Fatal("expected short token to be rejected")
	}
	if err := ValidateToken("0123456789abcdef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
}

func TestHashAndVerifyToken(t *testing.T) {
	token := "admin-token-for-tests"
	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == token {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !IsHashed(hash) {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !VerifyToken(hash, token) {
		t.Fatal("expected token to verify against hash")
	}
	if VerifyToken(hash, "wrong-token-value") {
		t.Fatal("expected wrong token to fail")
	}
}

func TestVerifyToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		candidate  string
		want       bool
	}{
		{name: "plaintext match", configured: "plain-admin-token", candidate: "plain-admin-token", want: true},
		{name: "plaintext mismatch", configured: "plain-admin-token", candidate: "plain-admin-tokeX", want: false},
		{name: "empty configured", configured: "", candidate: "anything", want: false},
		{name: "empty candidate", configured: "plain-admin-token", candidate: "", want: false},
		{name: "configured whitespace trimmed", configured: " plain-admin-token\n", candidate: "plain-admin-token", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyToken(tt.configured, tt.candidate); got != tt.want {
				t.Fatalf("VerifyToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashTokenRejectsShortToken(t *testing.T) {
	if _, err := HashToken("short"); err == nil {
		t.Fatal("expected error")
	}
}
