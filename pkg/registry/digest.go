package registry

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// parseIntegrity decodes a subresource-integrity string of the form
// "sha512-<base64>" or "sha1-<base64>" into a Digest. Unknown algorithms
// (sha384, etc.) are reported as not ok; the caller falls back to shasum.
func parseIntegrity(integrity string) (Digest, bool) {
	algorithm, encoded, found := strings.Cut(integrity, "-")
	if !found {
		return Digest{}, false
	}
	switch algorithm {
	case "sha512", "sha1":
	default:
		return Digest{}, false
	}
	sum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Digest{}, false
	}
	return Digest{Algorithm: algorithm, Sum: sum}, true
}

// decodeHex decodes a legacy hex-encoded shasum, returning nil on malformed
// input rather than erroring: a corrupt shasum degrades to "no digest"
// rather than aborting metadata fetch for the whole package.
func decodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
