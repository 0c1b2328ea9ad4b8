package model

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint hashes the declarative shape of d. Runtime state (current
// value, bound sources) and computed labels are left out, so the hash only
// changes when the descriptor itself does.
func Fingerprint(d Descriptor) (string, error) {
	payload, err := json.Marshal(d.Normalize())
	if err != nil {
		return "", err
	}
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}
