package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCIssuer is a minimal in-process OIDC issuer for tests. It serves the
// discovery document and a JWKS endpoint, and signs RS256 ID tokens that
// verify against them.
type OIDCIssuer struct {
	Server *httptest.Server

	key   *rsa.PrivateKey
	keyID string
}

// NewOIDCIssuer starts a mock issuer. The server is closed with the test.
func NewOIDCIssuer(t *testing.T) *OIDCIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	iss := &OIDCIssuer{key: key, keyID: "test-key-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                 iss.URL(),
			"authorization_endpoint": iss.URL() + "/authorize",
			"token_endpoint":         iss.URL() + "/token",
			"jwks_uri":               iss.URL() + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, _ *http.Request) {
		pub := &key.PublicKey
		writeJSON(w, map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": iss.keyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)
	return iss
}

// URL returns the issuer URL.
func (i *OIDCIssuer) URL() string {
	return i.Server.URL
}

// SignIDToken signs an RS256 ID token with the given claims. The iss claim
// is filled in automatically unless already present.
func (i *OIDCIssuer) SignIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	if _, ok := claims["iss"]; !ok {
		claims["iss"] = i.URL()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.keyID
	signed, err := token.SignedString(i.key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return signed
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
