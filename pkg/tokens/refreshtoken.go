package tokens

import (
	"fmt"
	"time"
)

func verifyRefresh(tokenStr string, secret []byte, now time.Time) (*RefreshClaims, error) {
	claims, err := Verify(tokenStr, secret, now)
	if err != nil {
		return nil, err
	}
	refresh, ok := claims.(*RefreshClaims)
	if !ok {
		return nil, fmt.Errorf("%w: %s token presented as refresh token", ErrInvalidToken, claims.Kind())
	}
	return refresh, nil
}
