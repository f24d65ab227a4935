package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/assetmesh/core"
)

func populatedRoom(t *testing.T) *BreakRoom {
	t.Helper()
	room := New(func(o *Options) { o.Name = "snapshot-room" })
	alice := newTestListener("Alice", core.RoleSecurity)
	bob := newTestListener("Bob", core.RoleRisk)

	first := room.Post(core.NewMessage(alice.info, core.MessageObservation, core.TopicVulnerability, "finding one"))
	reply := core.NewMessage(bob.info, core.MessageQuestion, core.TopicVulnerability, "which unit?")
	reply.ReplyTo = first.ID
	room.Post(reply)

	room.IndexObservation(core.NewObservation(alice.info.ID, core.ObservationWeakness, core.SeverityHigh,
		core.Subject{Facility: "Detroit"}, "weak auth"))
	room.AddKnowledge(core.Knowledge{Topic: core.TopicRisk, Content: "press unit runs legacy firmware", Source: alice.info.ID})
	return room
}

func TestSnapshotRoundTrip(t *testing.T) {
	room := populatedRoom(t)

	data, err := room.ToJSON()
	assert.NoError(t, err)

	restored, err := FromJSON(data)
	assert.NoError(t, err)

	assert.Equal(t, room.ID(), restored.ID())
	assert.Equal(t, room.Name(), restored.Name())
	assert.Equal(t, room.GetMessages(MessageFilter{}), restored.GetMessages(MessageFilter{}))
	assert.Equal(t, room.GetObservations(ObservationFilter{}), restored.GetObservations(ObservationFilter{}))
	assert.Equal(t, room.GetKnowledge(""), restored.GetKnowledge(""))
	assert.Equal(t, room.StatsSnapshot(), restored.StatsSnapshot())
	assert.Equal(t, room.GetActiveThreads(ThreadFilter{}), restored.GetActiveThreads(ThreadFilter{}))
}

func TestSnapshotExcludesListeners(t *testing.T) {
	room := populatedRoom(t)
	room.RegisterAgent(newTestListener("Carol", core.RoleGap))

	restored := FromSnapshot(room.Export())
	assert.Empty(t, restored.Agents(), "listeners must re-register after import")
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	room := populatedRoom(t)
	snap := room.Export()

	// mutating the source after export must not change the snapshot
	alice := newTestListener("Alice2", core.RoleSecurity)
	room.Post(core.NewMessage(alice.info, core.MessageObservation, core.TopicGeneral, "late message"))

	assert.Len(t, snap.Messages, 2)
	assert.WithinDuration(t, time.Now().UTC(), snap.ExportedAt, time.Minute)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	assert.Error(t, err)
}
