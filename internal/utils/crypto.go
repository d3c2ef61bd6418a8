package utils

import (
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	TicketCodePrefix = "TKT-"

	codeBodyLen  = 26 // base32 of 16 bytes, unpadded
	codeCheckLen = 4
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTicketCode returns a new scannable ticket code. The body is a random
// v4 UUID (122 random bits) and the last four characters are a blake2b check
// so mistyped codes are rejected without a lookup.
func GenerateTicketCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ticket code: %w", err)
	}
	body := codeEncoding.EncodeToString(id[:])
	return TicketCodePrefix + body + checksum(body), nil
}

// VerifyTicketCode reports whether code is well formed and its check characters match.
func VerifyTicketCode(code string) bool {
	code = NormalizeTicketCode(code)
	if !strings.HasPrefix(code, TicketCodePrefix) {
		return false
	}
	rest := strings.TrimPrefix(code, TicketCodePrefix)
	if len(rest) != codeBodyLen+codeCheckLen {
		return false
	}
	body, check := rest[:codeBodyLen], rest[codeBodyLen:]
	if _, err := codeEncoding.DecodeString(body); err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(check), []byte(checksum(body))) == 1
}

// NormalizeTicketCode upper-cases a scanned or typed code and strips separators
func NormalizeTicketCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.NewReplacer(" ", "", "_", "").Replace(code)
	if strings.HasPrefix(code, "TKT") && !strings.HasPrefix(code, TicketCodePrefix) {
		code = TicketCodePrefix + strings.TrimPrefix(code, "TKT")
	}
	return code
}

func checksum(body string) string {
	sum := blake2b.Sum256([]byte(body))
	return codeEncoding.EncodeToString(sum[:3])[:codeCheckLen]
}
