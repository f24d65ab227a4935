package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

const (
	riskScoreCritical      = 80.0
	riskScoreHigh          = 60.0
	riskConcentrationShare = 0.40
)

// RiskAgent analyzes risk scoring: critical and high cohorts, concentration
// by unit and device type, and the dominant risk factors.
type RiskAgent struct {
	BaseAgent
}

// NewRiskAgent constructs a risk analyzer for one facility.
func NewRiskAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *RiskAgent {
	a := &RiskAgent{
		BaseAgent: NewBaseAgent(facility+" Risk", core.RoleRisk, facility, facilityCode, room, optFns...),
	}
	a.setRelevantTopics(core.TopicRisk)
	a.setRoutes(RoutingTable{
		{Keywords: []string{"highest risk", "critical risk", "riskiest", "worst asset"}, Handle: a.answerWorst},
		{Keywords: []string{"concentration", "concentrated", "cluster"}, Handle: a.answerConcentration},
		{Keywords: []string{"risk factor", "driver", "why risky"}, Handle: a.answerFactors},
	})
	return a
}

// Observe runs the risk passes, replacing the prior observation set and
// posting the top findings to the bus.
func (a *RiskAgent) Observe(_ context.Context) []core.Observation {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Assets) == 0 {
		a.SetObservations(nil)
		return nil
	}

	var obs []core.Observation
	obs = append(obs, a.checkRiskCohorts(assetCtx)...)
	obs = append(obs, a.checkConcentration(assetCtx)...)
	obs = append(obs, a.checkDominantFactors(assetCtx)...)
	obs = append(obs, a.checkStrengths(assetCtx)...)

	a.SetObservations(obs)
	a.publishFindings(obs, core.TopicRisk)
	return obs
}

func (a *RiskAgent) highRiskAssets(assetCtx *core.AssetContext) (critical, high []core.Asset) {
	for _, asset := range assetCtx.Assets {
		switch {
		case asset.RiskScore >= riskScoreCritical:
			critical = append(critical, asset)
		case asset.RiskScore >= riskScoreHigh:
			high = append(high, asset)
		}
	}
	return critical, high
}

func (a *RiskAgent) checkRiskCohorts(assetCtx *core.AssetContext) []core.Observation {
	critical, high := a.highRiskAssets(assetCtx)
	var obs []core.Observation
	if len(critical) > 0 {
		tags := assetTags(critical)
		o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityCritical,
			core.Subject{Facility: assetCtx.Facility},
			fmt.Sprintf("%d assets score in the critical risk band (>= %.0f)", len(critical), riskScoreCritical)).
			WithConfidence(0.9).
			WithEvidence(core.NewEvidence("risk", "critical_band", "assets in the critical risk band", map[string]any{
				"count": len(critical),
				"tags":  tags,
			})).
			WithRecommendations("Mitigate critical-band assets before the next operating cycle")
		obs = append(obs, o)
	}
	if len(high) > 0 {
		o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityHigh,
			core.Subject{Facility: assetCtx.Facility},
			fmt.Sprintf("%d assets score in the high risk band (>= %.0f)", len(high), riskScoreHigh)).
			WithConfidence(0.85).
			WithEvidence(core.NewEvidence("risk", "high_band", "assets in the high risk band", map[string]any{
				"count": len(high),
				"tags":  assetTags(high),
			})).
			WithRecommendations("Review mitigations for high-band assets")
		obs = append(obs, o)
	}
	return obs
}

func (a *RiskAgent) checkConcentration(assetCtx *core.AssetContext) []core.Observation {
	critical, high := a.highRiskAssets(assetCtx)
	elevated := append(critical, high...)
	if len(elevated) < 2 {
		return nil
	}
	byUnit := make(map[string]int)
	for _, asset := range elevated {
		byUnit[asset.Unit]++
	}
	var worstUnit string
	var worstCount int
	for unit, count := range byUnit {
		if count > worstCount || (count == worstCount && unit < worstUnit) {
			worstUnit, worstCount = unit, count
		}
	}
	share := float64(worstCount) / float64(len(elevated))
	if share <= riskConcentrationShare {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationPattern, core.SeverityHigh,
		core.Subject{Facility: assetCtx.Facility, Unit: worstUnit},
		fmt.Sprintf("%.0f%% of elevated-risk assets are concentrated in unit %s", share*100, worstUnit)).
		WithConfidence(0.8).
		WithEvidence(core.NewEvidence("risk", "unit_concentration", "elevated-risk concentration by unit", map[string]any{
			"unit":  worstUnit,
			"count": worstCount,
			"share": share,
		})).
		WithRecommendations(fmt.Sprintf("Review unit %s as a whole rather than asset by asset", worstUnit))
	return []core.Observation{o}
}

func (a *RiskAgent) checkDominantFactors(assetCtx *core.AssetContext) []core.Observation {
	counts := make(map[string]int)
	for _, asset := range assetCtx.Assets {
		for _, f := range asset.RiskFactors {
			counts[f]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	factors := make([]string, 0, len(counts))
	for f := range counts {
		factors = append(factors, f)
	}
	sort.Slice(factors, func(i, j int) bool {
		if counts[factors[i]] != counts[factors[j]] {
			return counts[factors[i]] > counts[factors[j]]
		}
		return factors[i] < factors[j]
	})
	dominant := factors[0]
	o := core.NewObservation(a.Info().ID, core.ObservationTrend, core.SeverityMedium,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("Dominant risk factor is %q, present on %d assets", dominant, counts[dominant])).
		WithConfidence(0.75).
		WithEvidence(core.NewEvidence("risk", "dominant_factor", "most frequent risk factor", map[string]any{
			"factor": dominant,
			"count":  counts[dominant],
		})).
		WithRecommendations(fmt.Sprintf("Address %q systematically across the fleet", dominant))
	return []core.Observation{o}
}

func (a *RiskAgent) checkStrengths(assetCtx *core.AssetContext) []core.Observation {
	critical, _ := a.highRiskAssets(assetCtx)
	if len(critical) > 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationStrength, core.SeverityPositive,
		core.Subject{Facility: assetCtx.Facility},
		"No assets score in the critical risk band").
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "critical_band", "critical risk band population", map[string]any{"count": 0}))
	return []core.Observation{o}
}

func assetTags(assets []core.Asset) []string {
	tags := make([]string, 0, len(assets))
	for _, a := range assets {
		tags = append(tags, a.Tag)
	}
	return tags
}

func (a *RiskAgent) answerWorst(string) string {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Assets) == 0 {
		return "No asset context loaded."
	}
	worst := assetCtx.Assets[0]
	for _, asset := range assetCtx.Assets[1:] {
		if asset.RiskScore > worst.RiskScore {
			worst = asset
		}
	}
	return fmt.Sprintf("Highest risk asset is %s (%s) at %.0f.", worst.Tag, worst.DeviceType, worst.RiskScore)
}

func (a *RiskAgent) answerConcentration(string) string {
	for _, o := range a.Observations() {
		if o.Type == core.ObservationPattern {
			return o.Description
		}
	}
	return "Elevated risk is not concentrated in any single unit."
}

func (a *RiskAgent) answerFactors(string) string {
	for _, o := range a.Observations() {
		if o.Type == core.ObservationTrend {
			return o.Description
		}
	}
	return "No recurring risk factors recorded."
}
