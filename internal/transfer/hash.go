package transfer

import (
	"crypto/md5"  //nolint:gosec // integrity check against server-reported digest, not a security boundary
	"crypto/sha1" //nolint:gosec // same as md5 above
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Checksum algorithms the server reports for stored artifacts.
const (
	AlgoMD5    = "md5"
	AlgoSHA1   = "sha1"
	AlgoSHA256 = "sha256"
)

// ComputeChecksum computes the named digest of a local file and returns it
// hex-encoded. Uses streaming I/O (constant memory).
func ComputeChecksum(fsPath, algorithm string) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(fsPath)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", fsPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", fsPath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgoMD5:
		return md5.New(), nil //nolint:gosec // see file header
	case AlgoSHA1:
		return sha1.New(), nil //nolint:gosec // see file header
	case AlgoSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
}
