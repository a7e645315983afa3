package metadata

import (
	"encoding/hex"
	"errors"

	"lukechampine.com/blake3"
)

// ErrInvalidMethodMetadata is returned when method metadata cannot be compacted.
var ErrInvalidMethodMetadata = errors.New("invalid method metadata")

// MethodFingerprint identifies a method signature independently of argument names, env/tmp
// plumbing and state access.
type MethodFingerprint [32]byte

func (f MethodFingerprint) String() string { return hex.EncodeToString(f[:]) }

// Fingerprint hashes the external compaction of a method metadata blob with BLAKE3-256.
func Fingerprint(methodMetadata []byte) (MethodFingerprint, error) {
	compact, ok := Compact(methodMetadata, true)
	if !ok || len(compact) == 0 || !Kind(compact[0]).IsMethod() {
		return MethodFingerprint{}, ErrInvalidMethodMetadata
	}
	return MethodFingerprint(blake3.Sum256(compact)), nil
}

// MustFingerprint is Fingerprint for metadata known to be valid at build time.
func MustFingerprint(methodMetadata []byte) MethodFingerprint {
	f, err := Fingerprint(methodMetadata)
	if err != nil {
		panic(err)
	}
	return f
}
