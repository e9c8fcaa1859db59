package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Reset token configuration.
const (
	resetTokenBytes  = 20 // 20 bytes = 40 hex chars
	ResetTokenExpiry = time.Hour
)

// GenerateResetToken creates a random single-use reset token and its
// absolute expiry. The token is stored inline on the user record; a new
// request for the same user overwrites the previous token.
func GenerateResetToken() (token string, expiry time.Time, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), time.Now().Add(ResetTokenExpiry), nil
}
