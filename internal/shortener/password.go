package shortener

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type passwordHasher struct {
	cost int
}

func newPasswordHasher(cost int) passwordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return passwordHasher{cost: cost}
}

// hash returns "" for an empty password.
func (p passwordHasher) hash(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("password too long (max %d bytes)", MaxPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
