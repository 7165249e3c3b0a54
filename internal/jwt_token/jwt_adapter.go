package jwttoken

import (
	"credledger/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *SessionClaims) *auth.SessionClaims {
	return &auth.SessionClaims{
		Address: claims.Address,
		Issuer:  claims.Issuer,
		JTI:     claims.ID,
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*auth.SessionClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
