package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const verificationDigits = "0123456789"

// GenerateOrderNumber returns a customer-facing order number such as
// "ORD260117-2315-4821". The random suffix keeps numbers issued within the
// same minute apart; the unique index on orders.order_number is the backstop.
func GenerateOrderNumber() string {
	now := time.Now().UTC()

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf("ORD%s-%04d", now.Format("060102-1504"), n.Int64())
}

// GenerateVerificationCode returns a numeric code of the given length drawn
// from crypto/rand.
func GenerateVerificationCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid verification code length %d", length)
	}

	buf := make([]byte, length)
	max := big.NewInt(int64(len(verificationDigits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		buf[i] = verificationDigits[n.Int64()]
	}
	return string(buf), nil
}
