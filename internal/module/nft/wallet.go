package nft

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsValidAddress reports whether addr is a well-formed Ethereum address.
// Mixed-case addresses must also carry a valid EIP-55 checksum.
func IsValidAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	hex := addr[2:]
	for _, r := range hex {
		if !isHexDigit(r) {
			return false
		}
	}

	lower := strings.ToLower(hex)
	upper := strings.ToUpper(hex)
	if hex == lower || hex == upper {
		// All one case: no checksum encoded.
		return true
	}

	checksummed, err := ChecksumAddress(addr)
	if err != nil {
		return false
	}
	return checksummed == addr
}

// ChecksumAddress returns the EIP-55 checksummed form of addr.
func ChecksumAddress(addr string) (string, error) {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	hex := strings.ToLower(addr[2:])
	for _, r := range hex {
		if !isHexDigit(r) {
			return "", fmt.Errorf("invalid address %q", addr)
		}
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(hex))
	hash := hasher.Sum(nil)

	out := make([]byte, len(hex))
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if c >= 'a' && c <= 'f' {
			// Uppercase when the corresponding hash nibble is >= 8.
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}

	return "0x" + string(out), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
