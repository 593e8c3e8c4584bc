// Package randid generates short random identifiers.
package randid

import (
	"crypto/rand"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// maxByte is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are discarded so every character is equally likely.
const maxByte = 256 - 256%len(alphabet)

// Generate returns a random lowercase alphanumeric string of the given length.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4)
	for len(out) < length {
		// crypto/rand never fails on supported platforms
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}

// Prefixed returns prefix, an underscore and a random part of the given
// length, for example "h_3k9x0q".
func Prefixed(prefix string, length int) string {
	return prefix + "_" + Generate(length)
}
