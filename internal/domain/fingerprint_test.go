package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint(DomainIssue, map[string]string{"rule": "case-lead-attorney", "id": "c1"})
	b := Fingerprint(DomainIssue, map[string]string{"id": "c1", "rule": "case-lead-attorney"})
	assert.Equal(t, a, b, "key order does not matter")
	assert.Len(t, a, 64)
}

func TestFingerprint_Distinguishes(t *testing.T) {
	base := Fingerprint(DomainIssue, map[string]string{"id": "c1"})

	assert.NotEqual(t, base, Fingerprint(DomainIssue, map[string]string{"id": "c2"}))
	assert.NotEqual(t, base, Fingerprint("staffsync/other/v1", map[string]string{"id": "c1"}))
	assert.NotEqual(t,
		Fingerprint(DomainIssue, map[string]string{"a": "b,c"}),
		Fingerprint(DomainIssue, map[string]string{"a": "b", "c": ""}),
	)
}

func TestFingerprint_NormalizesUnicode(t *testing.T) {
	composed := Fingerprint(DomainIssue, map[string]string{"name": "Jos\u00e9"})
	decomposed := Fingerprint(DomainIssue, map[string]string{"name": "Jose\u0301"})
	assert.Equal(t, composed, decomposed)
}

func TestCanonicalFields(t *testing.T) {
	got := canonicalFields(map[string]string{"b": "<x>", "a": "\"q\""})
	assert.Equal(t, `{"a":"\"q\"","b":"<x>"}`, string(got))
}

func TestEntityType_Valid(t *testing.T) {
	for _, et := range EntityTypes {
		assert.True(t, et.Valid(), et)
	}
	assert.False(t, EntityType("invoice").Valid())
}
