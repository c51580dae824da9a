package chatexport

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// AnonKeyLength is the size of the anonymization key in bytes.
const AnonKeyLength = 32

// anonTokenWidth is how many hex characters of the digest end up in the
// contact token.
const anonTokenWidth = 12

// Anonymizer maps receiver display names to fixed-width CONTACT_ tokens via
// a keyed one-way function. The same name under the same key always yields
// the same token; the key never appears in any exported artifact.
type Anonymizer struct {
	key []byte
}

// NewAnonKey generates a fresh random anonymization key.
func NewAnonKey() ([]byte, error) {
	key := make([]byte, AnonKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate anonymization key: %w", err)
	}
	return key, nil
}

// NewAnonymizer creates an anonymizer over the given key.
func NewAnonymizer(key []byte) (*Anonymizer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("anonymization key is empty")
	}
	return &Anonymizer{key: key}, nil
}

// Token returns the stable token for a display name. The name is trimmed
// and lower-cased first, so "Alice Smith" and "alice smith  " map to the
// same token.
func (a *Anonymizer) Token(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(normalized))
	digest := hex.EncodeToString(mac.Sum(nil))
	return "CONTACT_" + strings.ToUpper(digest[:anonTokenWidth])
}
