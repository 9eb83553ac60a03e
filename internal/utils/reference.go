package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GeneratePaymentReference returns a gateway-safe unique reference, e.g. TLR-20240101-1a2b3c4d5e6f7a8b.
func GeneratePaymentReference() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("TLR-%s-%s", time.Now().UTC().Format("20060102"), id[:16])
}

// GenerateToken returns n random bytes hex-encoded.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
