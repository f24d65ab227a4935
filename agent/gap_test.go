package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

func matchedBaseline(n int) []core.BaselineAsset {
	baseline := make([]core.BaselineAsset, n)
	for i := range baseline {
		baseline[i] = core.BaselineAsset{Tag: core.NewID(), Unit: "U1", Matched: true}
	}
	return baseline
}

func TestGapObserveWithoutData(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	assert.Nil(t, a.Observe(context.Background()))

	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET"})
	assert.Nil(t, a.Observe(context.Background()))
}

func TestGapOneSidedDataIsInformational(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: cleanAssets(3)})

	obs := a.Observe(context.Background())
	assert.Len(t, obs, 1)
	assert.Equal(t, core.ObservationImprovement, obs[0].Type)
	assert.Equal(t, core.SeverityInfo, obs[0].Severity)
	assert.Equal(t, 1.0, obs[0].Confidence)
}

func TestGapBlindSpotSeverity(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	// 4 of 10 unmatched is above the 30% blind spot threshold
	baseline := matchedBaseline(10)
	for i := 0; i < 4; i++ {
		baseline[i].Matched = false
	}
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: cleanAssets(6), Baseline: baseline})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "blind spot")
	assert.True(t, ok)
	assert.Equal(t, core.SeverityHigh, o.Severity)

	baseline = matchedBaseline(10)
	baseline[0].Matched = false
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: cleanAssets(6), Baseline: baseline})

	obs = a.Observe(context.Background())
	o, ok = findObservation(obs, "blind spot")
	assert.True(t, ok)
	assert.Equal(t, core.SeverityMedium, o.Severity)
}

func TestGapOrphansAreAnomalies(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	assets := cleanAssets(5)
	assets[0].Matched = false
	assets[1].Matched = false
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: assets, Baseline: matchedBaseline(5)})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "no baseline record")
	assert.True(t, ok)
	assert.Equal(t, core.ObservationAnomaly, o.Type)
	assert.Equal(t, core.SeverityMedium, o.Severity)
	assert.Contains(t, o.Description, "2 discovered assets")
}

func TestGapFunctionalGapsAgainstTemplate(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	baseline := matchedBaseline(3)
	baseline[0].Function = "Historian"
	a.UpdateContext(&core.AssetContext{
		Facility:     "Detroit",
		FacilityCode: "DET",
		Assets:       cleanAssets(3),
		Baseline:     baseline,
		Template: &core.IndustryTemplate{
			Industry:          "automotive",
			ExpectedFunctions: []string{"historian", "Safety Instrumented System"},
		},
	})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "expects functions not present")
	assert.True(t, ok)
	assert.Contains(t, o.Description, "Safety Instrumented System")
	assert.NotContains(t, o.Description, "historian")
}

func TestGapStrengthOnHighMatchRate(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	baseline := matchedBaseline(10)
	baseline[0].Matched = false
	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: cleanAssets(9), Baseline: baseline})

	obs := a.Observe(context.Background())
	o, ok := findObservation(obs, "matched 90%")
	assert.True(t, ok)
	assert.Equal(t, core.ObservationStrength, o.Type)
}

func TestGapAnswerCoverage(t *testing.T) {
	room := bus.New()
	a := NewGapAgent("Detroit", "DET", room)

	answer := a.AnswerQuestion(context.Background(), "what is the coverage?")
	assert.Equal(t, "Coverage is unknown without a baseline register.", answer.Content)

	a.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: cleanAssets(4), Baseline: matchedBaseline(4)})
	answer = a.AnswerQuestion(context.Background(), "what is the coverage?")
	assert.Contains(t, answer.Content, "100%")
}
