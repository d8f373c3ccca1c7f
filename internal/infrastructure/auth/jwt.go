package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by a session token. The subject is the user id.
type Claims struct {
	Email      string `json:"email,omitempty"`
	OrgID      string `json:"org_id,omitempty"`
	SuperAdmin bool   `json:"super_admin,omitempty"`
	SessionID  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenSubject describes the caller a token is issued for.
type TokenSubject struct {
	UserID     string
	Email      string
	OrgID      string
	SuperAdmin bool
	SessionID  string
}

// JWTService verifies session tokens issued by the identity provider. Issue
// exists for the seed command and tests; production tokens come from upstream.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *JWTService) Issue(subject TokenSubject, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		Email:      subject.Email,
		OrgID:      subject.OrgID,
		SuperAdmin: subject.SuperAdmin,
		SessionID:  subject.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
