package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

func controllerWithDependents(tag string, dependents int) []core.Asset {
	assets := []core.Asset{{
		Tag:            tag,
		Unit:           "U1",
		DeviceType:     "PLC",
		Criticality:    "high",
		AuthMethod:     "unique",
		LifecycleStage: core.StageCurrent,
		Matched:        true,
	}}
	for i := 0; i < dependents; i++ {
		assets = append(assets, core.Asset{
			Tag:            fmt.Sprintf("%s-IO-%d", tag, i),
			Unit:           "U1",
			DeviceType:     "IO",
			Criticality:    "medium",
			AuthMethod:     "unique",
			LifecycleStage: core.StageCurrent,
			ControllerTag:  tag,
			Matched:        true,
		})
	}
	return assets
}

func TestDependencyObserveWithoutContext(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assert.Nil(t, a.Observe(context.Background()))
}

func TestDependencyControllerFanOut(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := controllerWithDependents("PLC-1", 11)
	assets[0].RedundantPeer = "PLC-1B"
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "serves 11 downstream assets")
	assert.True(t, ok)
	assert.Equal(t, core.SeverityHigh, o.Severity)
	assert.Equal(t, "PLC-1", o.Subject.Asset)
}

func TestDependencySubnetConcentration(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := cleanAssets(6)
	for i := 0; i < 4; i++ {
		assets[i].Subnet = "10.10.0.0/24"
	}
	assets[4].Subnet = "10.20.0.0/24"
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "share subnet 10.10.0.0/24")
	assert.True(t, ok)
	assert.Equal(t, core.SeverityMedium, o.Severity)
}

func TestDependencySubnetConcentrationNeedsPopulation(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := cleanAssets(4)
	for i := range assets {
		assets[i].Subnet = "10.10.0.0/24"
	}
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	_, ok := findObservation(obs, "share subnet")
	assert.False(t, ok)
}

func TestDependencySinglePointOfFailure(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := controllerWithDependents("PLC-2", 3)
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "single point of failure")
	assert.True(t, ok)
	assert.Equal(t, core.SeverityHigh, o.Severity)

	// a redundant peer clears the finding
	assets[0].RedundantPeer = "PLC-2B"
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs = a.Observe(context.Background())
	_, ok = findObservation(obs, "single point of failure")
	assert.False(t, ok)
}

func TestDependencyLoneSafetyControllerIsCriticalSPOF(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: []core.Asset{{
		Tag:            "SIS-1",
		Unit:           "U1",
		DeviceType:     "safety_controller",
		Criticality:    "critical",
		SafetyRated:    true,
		AuthMethod:     "unique",
		LifecycleStage: core.StageCurrent,
		Matched:        true,
	}}})

	obs := a.Observe(context.Background())
	assert.Len(t, obs, 1)
	assert.Equal(t, core.SeverityCritical, obs[0].Severity)
	assert.Contains(t, obs[0].Description, "SIS-1")
}

func TestDependencyIdleControllerWithoutDependentsIsNotSPOF(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := controllerWithDependents("PLC-3", 0)
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	_, ok := findObservation(obs, "single point of failure")
	assert.False(t, ok)
}

func TestDependencyBlastRadius(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	// 4 dependents out of 10 assets crosses the 30% blast radius threshold
	assets := controllerWithDependents("PLC-4", 4)
	assets[0].RedundantPeer = "PLC-4B"
	assets = append(assets, cleanAssets(5)...)
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "would impact 4 assets")
	assert.True(t, ok)
	assert.Equal(t, core.ObservationPattern, o.Type)
	assert.Equal(t, core.SeverityHigh, o.Severity)
	assert.Equal(t, "PLC-4", o.Subject.Asset)
}

func TestDependencyStrengthOnFullRedundancy(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	assets := controllerWithDependents("PLC-5", 2)
	assets[0].RedundantPeer = "PLC-5B"
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "redundant peers")
	assert.True(t, ok)
	assert.Equal(t, core.ObservationStrength, o.Type)
}

func TestDependencyAnswerSPOF(t *testing.T) {
	room := bus.New()
	a := NewDependencyAgent("Detroit", "DET", room)

	answer := a.AnswerQuestion(context.Background(), "any spof we should worry about?")
	assert.Equal(t, "No single points of failure detected among controllers.", answer.Content)
}
