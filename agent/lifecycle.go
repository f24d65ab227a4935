package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

const (
	eosShareHigh     = 0.10
	currentShareGood = 0.70
)

// LifecycleAgent analyzes equipment age cohorts: obsolete, end-of-support,
// approaching end-of-life and aging populations.
type LifecycleAgent struct {
	BaseAgent
}

// NewLifecycleAgent constructs a lifecycle analyzer for one facility.
func NewLifecycleAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *LifecycleAgent {
	a := &LifecycleAgent{
		BaseAgent: NewBaseAgent(facility+" Lifecycle", core.RoleLifecycle, facility, facilityCode, room, optFns...),
	}
	a.setRelevantTopics(core.TopicLifecycle)
	a.setRoutes(RoutingTable{
		{Keywords: []string{"obsolete", "end of life", "eol", "end-of-life"}, Handle: a.answerObsolete},
		{Keywords: []string{"support", "eos", "aging", "age", "old"}, Handle: a.answerAging},
		{Keywords: []string{"modern", "current", "refresh"}, Handle: a.answerModernization},
	})
	return a
}

// Observe runs the lifecycle cohort passes, replacing the prior observation
// set and posting the top findings to the bus.
func (a *LifecycleAgent) Observe(_ context.Context) []core.Observation {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Assets) == 0 {
		a.SetObservations(nil)
		return nil
	}

	var obs []core.Observation
	obs = append(obs, a.checkObsolete(assetCtx)...)
	obs = append(obs, a.checkEndOfSupport(assetCtx)...)
	obs = append(obs, a.checkApproachingEOL(assetCtx)...)
	obs = append(obs, a.checkAging(assetCtx)...)
	obs = append(obs, a.checkStrengths(assetCtx)...)

	a.SetObservations(obs)
	a.publishFindings(obs, core.TopicLifecycle)
	return obs
}

func (a *LifecycleAgent) cohort(assetCtx *core.AssetContext, stage core.LifecycleStage) []core.Asset {
	var out []core.Asset
	for _, asset := range assetCtx.Assets {
		if asset.LifecycleStage == stage {
			out = append(out, asset)
		}
	}
	return out
}

func (a *LifecycleAgent) checkObsolete(assetCtx *core.AssetContext) []core.Observation {
	cohort := a.cohort(assetCtx, core.StageObsolete)
	if len(cohort) == 0 {
		return nil
	}
	severity := core.SeverityHigh
	for _, asset := range cohort {
		if asset.Criticality == "critical" || asset.SafetyRated {
			severity = core.SeverityCritical
			break
		}
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d assets are obsolete with no vendor support path", len(cohort))).
		WithConfidence(0.9).
		WithEvidence(a.cohortEvidence("obsolete", cohort)).
		WithRecommendations("Plan replacement for obsolete equipment, starting with critical assets")
	return []core.Observation{o}
}

func (a *LifecycleAgent) checkEndOfSupport(assetCtx *core.AssetContext) []core.Observation {
	cohort := a.cohort(assetCtx, core.StageEndOfSupport)
	if len(cohort) == 0 {
		return nil
	}
	share := float64(len(cohort)) / float64(len(assetCtx.Assets))
	severity := core.SeverityMedium
	if share > eosShareHigh {
		severity = core.SeverityHigh
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d assets have reached end of support (%.0f%% of the population)", len(cohort), share*100)).
		WithConfidence(0.85).
		WithEvidence(a.cohortEvidence("end_of_support", cohort)).
		WithRecommendations("Negotiate extended support or schedule upgrades for end-of-support assets")
	return []core.Observation{o}
}

func (a *LifecycleAgent) checkApproachingEOL(assetCtx *core.AssetContext) []core.Observation {
	cohort := a.cohort(assetCtx, core.StageApproachingEOL)
	if len(cohort) == 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityMedium,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d assets are approaching end of life", len(cohort))).
		WithConfidence(0.8).
		WithEvidence(a.cohortEvidence("approaching_eol", cohort)).
		WithRecommendations("Budget replacements ahead of announced end-of-life dates")
	return []core.Observation{o}
}

func (a *LifecycleAgent) checkAging(assetCtx *core.AssetContext) []core.Observation {
	cohort := a.cohort(assetCtx, core.StageAging)
	if len(cohort) == 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityLow,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d assets are in the aging cohort", len(cohort))).
		WithConfidence(0.75).
		WithEvidence(a.cohortEvidence("aging", cohort))
	return []core.Observation{o}
}

func (a *LifecycleAgent) checkStrengths(assetCtx *core.AssetContext) []core.Observation {
	current := a.cohort(assetCtx, core.StageCurrent)
	share := float64(len(current)) / float64(len(assetCtx.Assets))
	if share < currentShareGood {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationStrength, core.SeverityPositive,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%.0f%% of equipment is current generation", share*100)).
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "current_share", "share of current-generation equipment", map[string]any{
			"current": len(current),
			"total":   len(assetCtx.Assets),
		}))
	return []core.Observation{o}
}

func (a *LifecycleAgent) cohortEvidence(stage string, cohort []core.Asset) core.Evidence {
	tags := make([]string, 0, len(cohort))
	for _, asset := range cohort {
		tags = append(tags, asset.Tag)
	}
	return core.NewEvidence("metric", "lifecycle_"+stage, "assets in lifecycle stage "+stage, map[string]any{
		"count": len(cohort),
		"tags":  tags,
	})
}

func (a *LifecycleAgent) answerObsolete(string) string {
	for _, o := range a.Weaknesses() {
		if containsFold(o.Description, "obsolete") {
			return o.Description
		}
	}
	return "No obsolete equipment detected."
}

func (a *LifecycleAgent) answerAging(string) string {
	weaknesses := a.Weaknesses()
	if len(weaknesses) == 0 {
		return "Equipment population is within supported lifecycle stages."
	}
	return fmt.Sprintf("%d lifecycle findings; worst: %s", len(weaknesses), weaknesses[0].Description)
}

func (a *LifecycleAgent) answerModernization(string) string {
	for _, o := range a.Strengths() {
		return o.Description
	}
	return "Current-generation share is below the modernization target."
}
