package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

var errMissingHost = errors.New("missing host")

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// EventID derives a stable 16 hex character id from the record's source and
// its id at that source, so re-ingesting the same event updates one row.
func EventID(source, originID string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{'_'})
	h.Write([]byte(originID))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NormalizeFacilityURL trims whitespace, adds a missing scheme and drops the
// fragment, giving a stable key for queueing and dedup.
func NormalizeFacilityURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", &url.Error{Op: "parse", URL: raw, Err: errMissingHost}
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
