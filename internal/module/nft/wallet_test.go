package nft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"checksummed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"all lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"all uppercase hex", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", true},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", false},
		{"missing prefix", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"too short", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe", false},
		{"too long", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed0", false},
		{"non-hex characters", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidAddress(tt.addr))
		})
	}
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 reference vectors.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}

	for _, want := range vectors {
		got, err := ChecksumAddress(want)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// Lowercase input produces the same checksummed form.
		got, err = ChecksumAddress("0x" + toLowerHex(want[2:]))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestChecksumAddress_Invalid(t *testing.T) {
	_, err := ChecksumAddress("0xnothex")
	assert.Error(t, err)

	_, err = ChecksumAddress("no-prefix")
	assert.Error(t, err)
}

func toLowerHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'F' {
			out[i] = c - 'A' + 'a'
		}
	}
	return string(out)
}
