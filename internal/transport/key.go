// Package transport implements the UDP Transport subsystem of
// spec.md §4.10: an AES-256-GCM sender/receiver pair with a
// replay-resistant serial number and a Firewall Controller reaction to
// repeated authentication failures. The crypto plumbing (key file
// layout, AES-256-GCM) is grounded on the
// teacher pack's tphakala-birdnet-go/internal/backup/encryption.go,
// the only example in the corpus that does symmetric encryption.
package transport

import (
	"fmt"
	"os"

	"hoover/internal/herr"
)

const KeySize = 32

// LoadKey reads the exactly-32-raw-byte shared key from path, per
// spec.md §6's "UDP key: exactly 32 raw bytes" rule.
func LoadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %v", herr.ErrInvalidKey, err)
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("%w: expected %d raw bytes, got %d", herr.ErrInvalidKey, KeySize, len(data))
	}
	return data, nil
}
