package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mastermind064/RT06/models"
)

// accessClaims is the payload of an access token.
type accessClaims struct {
	Role       string `json:"role"`
	RtID       string `json:"rt_id"`
	ResidentID string `json:"resident_id,omitempty"`
	jwt.RegisteredClaims
}

// issueAccessToken signs an HS256 access token for user.
func issueAccessToken(user models.User) (string, error) {
	ts := time.Now()
	claims := accessClaims{
		Role: user.Role,
		RtID: user.RtID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID.String(),
			Issuer:    cfg.JWTIssuer,
			Audience:  jwt.ClaimStrings{cfg.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(ts),
			ExpiresAt: jwt.NewNumericDate(ts.Add(cfg.JWTExpiration)),
		},
	}
	if user.ResidentID != nil {
		claims.ResidentID = user.ResidentID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// parseAccessToken validates signature, issuer, audience and expiry and
// returns the user id carried in sub.
func parseAccessToken(raw string) (uuid.UUID, *accessClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithIssuer(cfg.JWTIssuer),
		jwt.WithAudience(cfg.JWTAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if !token.Valid {
		return uuid.Nil, nil, errors.New("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, errors.New("invalid subject")
	}
	return userID, &claims, nil
}
