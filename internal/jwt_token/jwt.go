package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

// SessionClaims represents the JWT claims of a ledger session token.
// The token binds a caller address; the issuer flag is a hint for clients,
// the ledger's capability read stays authoritative.
type SessionClaims struct {
	Address string `json:"addr"`
	Issuer  bool   `json:"issuer,omitempty"`
	Env     string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles session token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	env        string
}

func NewJWTService(signingKey string, issuer string, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// SetEnv annotates issued tokens with an environment string (e.g., "dev").
func (s *JWTService) SetEnv(env string) {
	s.env = env
}

// GenerateSessionToken signs a session token for addr and returns it with its JTI.
func (s *JWTService) GenerateSessionToken(ctx context.Context, addr id.Address, issuer bool) (string, string, error) {
	addr, err := id.ParseAddress(addr.String())
	if err != nil {
		return "", "", err
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	jti := hex.EncodeToString(b)
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Address: addr.String(),
		Issuer:  issuer,
		Env:     s.env,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr.Normalized().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeNotConnected, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeNotConnected, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeNotConnected, "invalid token")
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotConnected, "invalid token claims")
	}
	if _, err := id.ParseAddress(claims.Address); err != nil {
		return nil, dErrors.New(dErrors.CodeNotConnected, "invalid token address")
	}
	return claims, nil
}
