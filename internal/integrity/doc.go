// Package integrity finds and repairs broken cross-entity references in a
// guild's staffing data.
//
// A scan loads every guild-scoped collection into an Env, runs the rule
// registry (built-in rules plus custom rules, ordered by priority) over
// each document and collects the issues into a Report. Some issues carry a
// repair action; Repair runs those actions and audits each success.
//
// Issue IDs are content fingerprints of (rule, entity type, entity id,
// field), so rescanning unchanged data yields the same IDs.
package integrity
