// Package roles detects and resolves staff role conflicts: members who hold
// the platform roles of more than one staff rank at once.
//
// Conflicts are recomputed from live platform state on every scan; nothing
// about a conflict is persisted except the audit entry written when it is
// resolved. Resolution keeps the highest-ranked role and removes the rest.
package roles
