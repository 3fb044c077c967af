// Package util provides utility functions for the Courier application.
package util

import (
	"math/rand/v2"
	"strings"
)

// QueueIDHexLength is the hex length of generated queue item IDs. Combined
// with the "e" prefix the ID stays within the 16-character ID column.
const QueueIDHexLength = 12

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; queue IDs only need uniqueness within one table, not
// cryptographic strength.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateQueueID generates a unique email queue item ID with "e" prefix.
func GenerateQueueID() string {
	return GenerateRandomID("e", QueueIDHexLength)
}
