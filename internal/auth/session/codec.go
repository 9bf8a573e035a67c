// Package session signs principals into expiring bearer tokens and
// manages the session cookie.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies session tokens. The signing secret is
// dedicated to sessions; api key tagging uses its own secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

type claims struct {
	Alias string   `json:"alias,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issue signs the principal into a token expiring after ttl.
func (c *Codec) Issue(p domain.Principal, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Alias: p.Alias,
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.SubjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and reconstructs the principal.
// It does not consult the credential store; callers must still confirm
// the subject exists.
func (c *Codec) Verify(raw string) (*domain.Principal, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrSessionExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, domain.ErrInvalidSignature
		default:
			return nil, domain.ErrMalformedToken
		}
	}

	subject, err := snowflake.ParseString(cl.Subject)
	if err != nil {
		return nil, domain.ErrMalformedToken
	}

	roles := cl.Roles
	if roles == nil {
		roles = []string{}
	}

	return &domain.Principal{
		SubjectID: subject,
		Alias:     cl.Alias,
		Roles:     roles,
	}, nil
}
