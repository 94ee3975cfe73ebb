package actions

import "crypto/rand"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
)

// randomCode returns a friend code: 5 uppercase alphanumeric characters.
// Lookups normalize to uppercase, so the 36^5 space is case-insensitive.
func randomCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
