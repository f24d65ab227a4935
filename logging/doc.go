// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer AssetMeshLogger with contextual
// helpers (facility, round, component) and domain specific helpers for
// observation rounds, tool calls and reasoning provider calls.
package logging
