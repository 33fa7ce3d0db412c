package purge

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveAnonymizationKey expands the configured master secret into the key
// used for pseudonymization tokens. Deriving rather than using the secret
// directly keeps the master secret reusable for other purposes without the
// tokens becoming linkable to them.
func DeriveAnonymizationKey(master []byte) ([]byte, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("anonymization master secret is empty")
	}
	reader := hkdf.New(sha256.New, master, nil, []byte("retention/anonymize/v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
