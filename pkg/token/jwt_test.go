package token

import (
	"testing"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1)
	tok, err := m.GenerateToken("ops", RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.VerifyToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "ops" || claims.Role != RoleAdmin || claims.Subject != "ops" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, _ := NewJWTManager("secret", 1).GenerateToken("ops", RoleAdmin)
	if _, err := NewJWTManager("other", 1).VerifyToken(tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestVerify_Expired(t *testing.T) {
	m := NewJWTManager("secret", -1)
	tok, err := m.GenerateToken("ops", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.VerifyToken(tok); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
