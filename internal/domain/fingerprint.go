package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for fingerprints. The version suffix allows the
// algorithm to change without colliding with old values.
const (
	DomainIssue = "staffsync/issue/v1"
)

// Fingerprint computes a stable identity for a set of string fields.
// Keys are sorted and values NFC-normalized before hashing, so the same
// logical input always produces the same fingerprint.
func Fingerprint(domain string, fields map[string]string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(canonicalFields(fields))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalFields renders fields as a JSON object with sorted keys,
// NFC-normalized strings and no HTML escaping.
func canonicalFields(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalString(k))
		buf.WriteByte(':')
		buf.Write(canonicalString(fields[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func canonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}
