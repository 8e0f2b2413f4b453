package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Issue signs c with HS256. IssuedAt and ExpiresAt are set from now and ttl
// on c itself, so the caller can read the expiry back.
func Issue(c Claims, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("tokens: empty signing secret")
	}
	if ttl <= 0 {
		return "", errors.New("tokens: ttl must be positive")
	}
	c.stamp()
	rc := c.registered()
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// Verify checks signature, algorithm and expiry and returns the variant named
// by the type marker. Any failure wraps ErrInvalidToken.
func Verify(tokenStr string, secret []byte, now time.Time) (Claims, error) {
	var wc wireClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	tkn, err := parser.ParseWithClaims(tokenStr, &wc, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if wc.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}

	switch wc.Type {
	case KindAccess:
		return &AccessClaims{
			UserID:           wc.UserID,
			TenantID:         wc.TenantID,
			Email:            wc.Email,
			Permissions:      wc.Permissions,
			Type:             wc.Type,
			RegisteredClaims: wc.RegisteredClaims,
		}, nil
	case KindRefresh:
		return &RefreshClaims{
			UserID:           wc.UserID,
			Type:             wc.Type,
			RegisteredClaims: wc.RegisteredClaims,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidToken, wc.Type)
	}
}

// Codec binds secrets, lifetimes and a clock for the two token kinds.
type Codec struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Codec) IssueAccess(claims *AccessClaims) (string, error) {
	return Issue(claims, c.AccessSecret, c.AccessTTL, c.now())
}

func (c *Codec) IssueRefresh(claims *RefreshClaims) (string, error) {
	return Issue(claims, c.RefreshSecret, c.RefreshTTL, c.now())
}

func (c *Codec) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	return verifyAccess(tokenStr, c.AccessSecret, c.now())
}

func (c *Codec) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	return verifyRefresh(tokenStr, c.RefreshSecret, c.now())
}

// Digest is the form in which tokens are persisted.
func Digest(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}
