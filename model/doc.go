// Package model defines the pluggable reasoning provider interface agents
// delegate to when natural-language answers are wanted, plus a deterministic
// mock for tests. Provider absence is a supported configuration: agents fall
// back to rule-based reasoning over their own observation history.
package model
