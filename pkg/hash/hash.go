package hash

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string, cost int) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// CheckPassword compares in constant time with respect to the password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// dummyHash returns a throwaway hash built at cost, generated once per cost.
func dummyHash(cost int) []byte {
	cost = normalizeCost(cost)
	dummyMu.Lock()
	defer dummyMu.Unlock()
	h, ok := dummyHashes[cost]
	if !ok {
		h, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
		dummyHashes[cost] = h
	}
	return h
}

// BurnCompare spends the same work as checking a password hashed at cost.
// Call it when the account does not exist so response time does not reveal that.
func BurnCompare(password string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(password))
}
