package admin

import (
	"golang.org/x/crypto/bcrypt"
)

// HashToken creates a bcrypt hash of an operator token, suitable for
// admin.operator_token_hash.
//
// Precondition: token must be non-empty and at most 72 bytes.
// Postcondition: Returns a bcrypt hash string.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckToken compares a presented token against a bcrypt hash.
//
// Postcondition: Returns true if token matches the hash.
func CheckToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
