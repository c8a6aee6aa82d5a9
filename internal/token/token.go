package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// Claims binds the opaque session token to the verified voter and election.
// The token itself travels as the JWT ID.
type Claims struct {
	VoterID    uuid.UUID  `json:"voter_id"`
	ElectionID *uuid.UUID `json:"election_id,omitempty"`
	jwt.RegisteredClaims
}

// Token returns the opaque session token carried by the pass
func (c *Claims) Token() string {
	return c.ID
}

// Pass is what a successful attempt hands to the ballot flow
type Pass struct {
	Token     string    `json:"-"`
	Pass      string    `json:"pass"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer mints session tokens and signs them into ballot passes (HS256)
type Issuer struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer creates a new pass issuer
func NewIssuer(secretKey, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock overrides the time source
func (s *Issuer) WithClock(now func() time.Time) *Issuer {
	s.now = now
	return s
}

// Mint generates a fresh session token and its signed pass
func (s *Issuer) Mint(voterID uuid.UUID, electionID *uuid.UUID) (*Pass, error) {
	tok, err := domain.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		VoterID:    voterID,
		ElectionID: electionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tok,
			Issuer:    s.issuer,
			Subject:   voterID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("sign pass: %w", err)
	}

	return &Pass{
		Token:     tok,
		Pass:      signed,
		ExpiresAt: expiresAt.Truncate(time.Second),
	}, nil
}

// Parse validates signature and expiry of a ballot pass
func (s *Issuer) Parse(pass string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(pass, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired.WithError(err)
		}
		return nil, domain.ErrInvalidToken.WithError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || !domain.IsValidSessionToken(claims.ID) {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
