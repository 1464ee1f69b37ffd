package authentication

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ClaimsContextKey struct{}

var ErrMissingToken = errors.New("missing bearer token")
var ErrNoVerificationKey = errors.New("no token verification key configured")

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

type VerifierOptions struct {
	HmacSecret    []byte
	RsaPublicKeys []*rsa.PublicKey
	Issuer        string
	Audience      string
}

// Verifier validates id tokens and returns their claims.
type Verifier struct {
	hmacSecret    []byte
	rsaPublicKeys []*rsa.PublicKey
	parser        *jwt.Parser
}

func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if len(opts.HmacSecret) == 0 && len(opts.RsaPublicKeys) == 0 {
		return nil, ErrNoVerificationKey
	}
	validMethods := []string{}
	if len(opts.HmacSecret) > 0 {
		validMethods = append(validMethods, jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg())
	}
	if len(opts.RsaPublicKeys) > 0 {
		validMethods = append(validMethods, jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg())
	}
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(opts.Audience))
	}
	return &Verifier{
		hmacSecret:    opts.HmacSecret,
		rsaPublicKeys: opts.RsaPublicKeys,
		parser:        jwt.NewParser(parserOptions...),
	}, nil
}

// LoadRsaPublicKey reads a PEM encoded RSA public key.
func LoadRsaPublicKey(path string) (*rsa.PublicKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pemBytes)
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return v.hmacSecret, nil
	case *jwt.SigningMethodRSA:
		keys := make([]jwt.VerificationKey, 0, len(v.rsaPublicKeys))
		for _, key := range v.rsaPublicKeys {
			keys = append(keys, key)
		}
		return jwt.VerificationKeySet{Keys: keys}, nil
	}
	return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
}

func (v *Verifier) Verify(tokenString string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// extractToken accepts both a raw token and the "Bearer <token>" form.
func extractToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(authorizationHeader))
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		header = strings.TrimSpace(header[len(bearerPrefix):])
	}
	if header == "" {
		return "", ErrMissingToken
	}
	return header, nil
}

// ClaimsFromContext returns the verified claims stored by the bearer middleware.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(ClaimsContextKey{}).(map[string]any)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

func MakeBearerMiddleware(verifier *Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		tokenString, err := extractToken(r)
		if err != nil {
			slog.Debug("Rejecting unauthenticated request", "path", r.URL.Path, "error", err)
			writeUnauthorized(w)
			return
		}
		claims, err := verifier.Verify(tokenString)
		if err != nil {
			slog.Info("Rejecting invalid token", "path", r.URL.Path, "error", err)
			writeUnauthorized(w)
			return
		}
		r = r.Clone(context.WithValue(r.Context(), ClaimsContextKey{}, claims))
		next.ServeHTTP(w, r)
	})
}
