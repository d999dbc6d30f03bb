package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	otpMin = 100000
	otpMax = 999999

	// VoucherCodePrefix starts every voucher redemption code
	VoucherCodePrefix = "BABSY"
)

// GenerateOTPCode returns a uniformly random 6-digit code in [100000, 999999]
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// IsOTPCode reports whether s looks like a code produced by GenerateOTPCode
func IsOTPCode(s string) bool {
	if len(s) != 6 || s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GenerateVoucherCode creates a code in the format "BABSY-<base36 millis>-<16 hex>",
// upper-cased. The millisecond part keeps codes roughly sortable by creation.
func GenerateVoucherCode(now time.Time) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate voucher code: %w", err)
	}

	code := fmt.Sprintf("%s-%s-%s",
		VoucherCodePrefix,
		strconv.FormatInt(now.UnixMilli(), 36),
		hex.EncodeToString(buf),
	)
	return strings.ToUpper(code), nil
}
