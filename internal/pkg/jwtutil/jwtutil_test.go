package jwtutil_test

import (
	"errors"
	"testing"
	"time"

	"prayogai-rag/internal/pkg/jwtutil"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := jwtutil.GenerateToken("secret", time.Minute, 42, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := jwtutil.ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	valid, _ := jwtutil.GenerateToken("secret", time.Minute, 1, "bob")
	expired, _ := jwtutil.GenerateToken("secret", -time.Minute, 1, "bob")

	cases := map[string]struct{ secret, token string }{
		"wrong secret": {"other", valid},
		"expired":      {"secret", expired},
		"garbage":      {"secret", "not-a-token"},
	}
	for name, c := range cases {
		if _, err := jwtutil.ParseToken(c.secret, c.token); !errors.Is(err, jwtutil.ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
