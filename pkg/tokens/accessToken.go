package tokens

import (
	"fmt"
	"time"
)

func verifyAccess(tokenStr string, secret []byte, now time.Time) (*AccessClaims, error) {
	claims, err := Verify(tokenStr, secret, now)
	if err != nil {
		return nil, err
	}
	access, ok := claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("%w: %s token presented as access token", ErrInvalidToken, claims.Kind())
	}
	return access, nil
}
