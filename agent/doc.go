// Package agent implements the observation layer's agents: the shared
// BaseAgent behavior (speak, listen, reason, suggest, tool projections), the
// five domain analyzers (security, lifecycle, gap, risk, dependency), the
// facility aggregator and the enterprise coordinator.
//
// Domain analyzers implement the DomainAgent interface and are composed into
// a FacilityAgent through a registry keyed by role; there is no class
// hierarchy beyond the embedded BaseAgent. All collaboration runs through an
// explicitly injected bus handle.
package agent
