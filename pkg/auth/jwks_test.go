package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signHS256 creates a token signed with a throwaway secret; only useful when
// verification is disabled.
func signHS256(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestNewJWKSClient_DevMode(t *testing.T) {
	client, err := NewJWKSClient(JWKSConfig{EnableVerification: false})
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestJWKSClient_ValidateToken_DevMode(t *testing.T) {
	client, err := NewJWKSClient(JWKSConfig{EnableVerification: false})
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	token := signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://auth.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@example.com",
		Roles: []string{"analyst"},
	})

	claims, err := client.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected Subject 'user-123', got %q", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("expected Email 'user@example.com', got %q", claims.Email)
	}
	if !claims.HasRole("analyst") || claims.HasRole("admin") {
		t.Errorf("unexpected roles: %v", claims.Roles)
	}
}

func TestJWKSClient_ValidateToken_DevModeIgnoresExpiry(t *testing.T) {
	client, err := NewJWKSClient(JWKSConfig{EnableVerification: false})
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	token := signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if _, err := client.ValidateToken(context.Background(), token); err != nil {
		t.Errorf("expected expired token to parse in dev mode, got %v", err)
	}
}

func TestJWKSClient_ValidateToken_Malformed(t *testing.T) {
	client, err := NewJWKSClient(JWKSConfig{EnableVerification: false})
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	for _, token := range []string{"", "not-a-jwt", "a.b.c", "!!!.@@@.###"} {
		if _, err := client.ValidateToken(context.Background(), token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}

// jwksServer serves a single RSA public key as a JWK set.
func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	set := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJWKSClient_ValidateToken_Verified(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	const issuer = "https://auth.example.com"
	srv := jwksServer(t, "test-key", &key.PublicKey)

	client, err := NewJWKSClient(JWKSConfig{
		EnableVerification: true,
		JWKSEndpoints:      map[string]string{issuer: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	sign := func(iss string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				Issuer:    iss,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		token.Header["kid"] = "test-key"
		s, err := token.SignedString(key)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		return s
	}

	claims, err := client.ValidateToken(context.Background(), sign(issuer))
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected Subject 'user-123', got %q", claims.Subject)
	}

	_, err = client.ValidateToken(context.Background(), sign("https://other.example.com"))
	if err == nil || !strings.Contains(err.Error(), "unauthorized issuer") {
		t.Errorf("expected unauthorized issuer error, got %v", err)
	}

	_, err = client.ValidateToken(context.Background(), signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}))
	if err == nil || !strings.Contains(err.Error(), "unexpected signing method") {
		t.Errorf("expected signing method error, got %v", err)
	}
}
