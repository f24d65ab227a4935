// Package core defines the shared domain model for the AssetMesh observation
// layer: bus messages and threads, typed observations with evidence, the
// read-only asset context agents analyze, agent identity, and the health
// scoring used at every aggregation level.
package core
