// Package domain defines the guild-scoped records the staffing core reads and
// repairs, the repository contract every collection satisfies, and the
// content fingerprints used to give integrity issues stable identities.
//
// All records are plain data keyed by an opaque string ID and scoped to a
// guild. The core never depends on a storage technology, only on the five
// repository operations in Repository.
package domain
