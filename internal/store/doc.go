// Package store provides the SQLite-backed document store behind the
// staffing repositories and the audit log.
//
// Every collection lives in one documents table: the record is stored as a
// JSON body and its guild and user IDs are copied into indexed columns on
// each write. Reads are ordered by insertion sequence so scans are
// deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
