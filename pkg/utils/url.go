package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

var errUnsupportedScheme = errors.New("unsupported URL scheme")

// HashParts creates a SHA256 hash over length-prefixed parts, so ("ab", "c")
// and ("a", "bc") hash differently. Useful as a stable Redis key or job ID.
func HashParts(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
// Links that cannot be followed (javascript:, mailto:, data:, tel:) are rejected.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relative = strings.TrimSpace(relative)
	lower := strings.ToLower(relative)
	for _, scheme := range []string{"javascript:", "mailto:", "data:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", errUnsupportedScheme
		}
	}
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	if base == nil {
		return relURL.String(), nil
	}
	return base.ResolveReference(relURL).String(), nil
}
