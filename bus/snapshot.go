package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/assetmesh/core"
)

// Snapshot is the opaque full-state export of a BreakRoom. Round-tripping a
// snapshot reproduces an equivalent bus (modulo object identity); live
// listeners and subscribers are not part of the snapshot and must
// re-register after import.
type Snapshot struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Messages     []core.Message          `json:"messages"`
	Threads      map[string]*core.Thread `json:"threads"`
	Observations []core.Observation      `json:"observations"`
	Knowledge    []core.Knowledge        `json:"knowledge"`
	Stats        Stats                   `json:"stats"`
	Agents       []core.AgentInfo        `json:"agents"`
	ExportedAt   time.Time               `json:"exported_at"`
}

// Export copies the full bus state into a Snapshot.
func (b *BreakRoom) Export() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		ID:           b.id,
		Name:         b.name,
		Messages:     append([]core.Message(nil), b.messages...),
		Threads:      make(map[string]*core.Thread, len(b.threads)),
		Observations: append([]core.Observation(nil), b.observations...),
		Knowledge:    append([]core.Knowledge(nil), b.knowledge...),
		Stats:        b.stats,
		ExportedAt:   time.Now().UTC(),
	}
	snap.Stats.ByType = make(map[core.MessageType]int, len(b.stats.ByType))
	for k, v := range b.stats.ByType {
		snap.Stats.ByType[k] = v
	}
	for id, t := range b.threads {
		cp := *t
		cp.Messages = append([]core.Message(nil), t.Messages...)
		cp.Participants = append([]string(nil), t.Participants...)
		snap.Threads[id] = &cp
	}
	for _, a := range b.agents {
		snap.Agents = append(snap.Agents, a.info)
	}
	return snap
}

// ToJSON serializes the full bus state.
func (b *BreakRoom) ToJSON() ([]byte, error) {
	return json.Marshal(b.Export())
}

// FromSnapshot reconstructs a BreakRoom from an exported snapshot. Retention
// caps come from the options; the snapshot's content is kept verbatim.
func FromSnapshot(snap Snapshot, optFns ...func(o *Options)) *BreakRoom {
	b := New(optFns...)
	b.id = snap.ID
	if snap.Name != "" {
		b.name = snap.Name
	}
	b.messages = append([]core.Message(nil), snap.Messages...)
	b.observations = append([]core.Observation(nil), snap.Observations...)
	b.knowledge = append([]core.Knowledge(nil), snap.Knowledge...)
	b.stats = snap.Stats
	if b.stats.ByType == nil {
		b.stats.ByType = make(map[core.MessageType]int)
	}
	for id, t := range snap.Threads {
		cp := *t
		cp.Messages = append([]core.Message(nil), t.Messages...)
		cp.Participants = append([]string(nil), t.Participants...)
		b.threads[id] = &cp
	}
	return b
}

// FromJSON deserializes a snapshot produced by ToJSON and reconstructs an
// equivalent bus. Last snapshot wins; there is no incremental merge.
func FromJSON(data []byte, optFns ...func(o *Options)) (*BreakRoom, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return FromSnapshot(snap, optFns...), nil
}
