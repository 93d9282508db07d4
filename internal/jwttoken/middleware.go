package jwttoken

import (
	"drivegate/internal/platform/middleware"
)

type middlewareValidator struct {
	svc *Service
}

// MiddlewareValidator adapts the signer to the transport auth middleware.
func (s *Service) MiddlewareValidator() middleware.TokenValidator {
	return middlewareValidator{svc: s}
}

func (v middlewareValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := v.svc.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		UserID:   claims.Subject,
		ClientID: claims.ClientID,
		Scopes:   claims.Scopes,
		JTI:      claims.ID,
	}, nil
}
