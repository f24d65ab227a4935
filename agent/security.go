package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

// Security analysis thresholds. Shares are fractions of the facility's
// asset population.
const (
	vulnShareHigh   = 0.30
	vulnShareMedium = 0.10
	patchStaleDays  = 365
	patchShareHigh  = 0.25
)

// SecurityAgent analyzes vulnerability density, network exposure, patch
// staleness and authentication configuration.
type SecurityAgent struct {
	BaseAgent
}

// NewSecurityAgent constructs a security analyzer for one facility.
func NewSecurityAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *SecurityAgent {
	a := &SecurityAgent{
		BaseAgent: NewBaseAgent(facility+" Security", core.RoleSecurity, facility, facilityCode, room, optFns...),
	}
	a.setRelevantTopics(core.TopicVulnerability, core.TopicCompliance)
	a.setRoutes(RoutingTable{
		{Keywords: []string{"vulnerab", "cve", "patch"}, Handle: a.answerVulnerabilities},
		{Keywords: []string{"exposure", "exposed", "internet", "network"}, Handle: a.answerExposure},
		{Keywords: []string{"auth", "password", "credential"}, Handle: a.answerAuth},
	})
	return a
}

// Observe runs the security passes over the shared asset context, replacing
// the prior observation set and posting the top findings to the bus.
func (a *SecurityAgent) Observe(_ context.Context) []core.Observation {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Assets) == 0 {
		a.SetObservations(nil)
		return nil
	}

	var obs []core.Observation
	obs = append(obs, a.checkVulnerabilityDensity(assetCtx)...)
	obs = append(obs, a.checkNetworkExposure(assetCtx)...)
	obs = append(obs, a.checkPatchStaleness(assetCtx)...)
	obs = append(obs, a.checkAuthConfiguration(assetCtx)...)
	obs = append(obs, a.checkStrengths(assetCtx)...)

	a.SetObservations(obs)
	a.publishFindings(obs, core.TopicVulnerability)
	return obs
}

func (a *SecurityAgent) subject(assetCtx *core.AssetContext) core.Subject {
	return core.Subject{Facility: assetCtx.Facility}
}

func (a *SecurityAgent) checkVulnerabilityDensity(assetCtx *core.AssetContext) []core.Observation {
	total := len(assetCtx.Assets)
	vulnerable := 0
	vulnTotal := 0
	for _, asset := range assetCtx.Assets {
		if asset.VulnCount > 0 {
			vulnerable++
			vulnTotal += asset.VulnCount
		}
	}
	if vulnerable == 0 {
		return nil
	}

	share := float64(vulnerable) / float64(total)
	severity := core.SeverityMedium
	if share > vulnShareHigh {
		severity = core.SeverityHigh
	} else if share <= vulnShareMedium {
		severity = core.SeverityLow
	}

	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity, a.subject(assetCtx),
		fmt.Sprintf("%d of %d assets carry known vulnerabilities (%d findings total)", vulnerable, total, vulnTotal)).
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "vulnerability_density", "share of assets with known vulnerabilities", map[string]any{
			"vulnerable": vulnerable,
			"total":      total,
			"share":      share,
		})).
		WithRecommendations("Prioritize remediation of assets with known vulnerabilities")
	return []core.Observation{o}
}

func (a *SecurityAgent) checkNetworkExposure(assetCtx *core.AssetContext) []core.Observation {
	var obs []core.Observation
	for _, asset := range assetCtx.Assets {
		if !asset.InternetExposed {
			continue
		}
		severity := core.SeverityHigh
		if asset.SafetyRated || asset.Criticality == "critical" {
			severity = core.SeverityCritical
		}
		o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity,
			core.Subject{Facility: assetCtx.Facility, Unit: asset.Unit, Asset: asset.Tag},
			fmt.Sprintf("Asset %s (%s) is reachable from the internet", asset.Tag, asset.DeviceType)).
			WithConfidence(0.95).
			WithEvidence(core.NewEvidence("asset", asset.Tag, "internet-exposed asset", map[string]any{
				"ip_address": asset.IPAddress,
				"open_ports": asset.OpenPorts,
			})).
			WithRecommendations(fmt.Sprintf("Isolate %s behind the OT perimeter", asset.Tag))
		obs = append(obs, o)
	}
	return obs
}

func (a *SecurityAgent) checkPatchStaleness(assetCtx *core.AssetContext) []core.Observation {
	total := len(assetCtx.Assets)
	stale := 0
	for _, asset := range assetCtx.Assets {
		if asset.PatchAgeDays > patchStaleDays {
			stale++
		}
	}
	if stale == 0 {
		return nil
	}

	share := float64(stale) / float64(total)
	severity := core.SeverityMedium
	if share > patchShareHigh {
		severity = core.SeverityHigh
	}

	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity, a.subject(assetCtx),
		fmt.Sprintf("%d of %d assets have gone more than a year without patching", stale, total)).
		WithConfidence(0.85).
		WithEvidence(core.NewEvidence("metric", "patch_staleness", "assets unpatched beyond 365 days", map[string]any{
			"stale": stale,
			"total": total,
		})).
		WithRecommendations("Schedule a patch window for assets unpatched beyond one year")
	return []core.Observation{o}
}

func (a *SecurityAgent) checkAuthConfiguration(assetCtx *core.AssetContext) []core.Observation {
	weak := 0
	for _, asset := range assetCtx.Assets {
		if asset.AuthMethod == "none" || asset.AuthMethod == "default" {
			weak++
		}
	}
	if weak == 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityHigh, a.subject(assetCtx),
		fmt.Sprintf("%d assets use no or default authentication", weak)).
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "weak_auth", "assets with absent or default credentials", map[string]any{"count": weak})).
		WithRecommendations("Enforce unique credentials on all controllers and HMIs")
	return []core.Observation{o}
}

func (a *SecurityAgent) checkStrengths(assetCtx *core.AssetContext) []core.Observation {
	exposed, vulnerable := 0, 0
	for _, asset := range assetCtx.Assets {
		if asset.InternetExposed {
			exposed++
		}
		if asset.VulnCount > 0 {
			vulnerable++
		}
	}
	share := float64(vulnerable) / float64(len(assetCtx.Assets))
	if exposed > 0 || share >= vulnShareMedium {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationStrength, core.SeverityPositive, a.subject(assetCtx),
		"No internet-exposed assets and vulnerability density is low").
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "security_posture", "exposure and vulnerability density", map[string]any{
			"exposed":          exposed,
			"vulnerable_share": share,
		}))
	return []core.Observation{o}
}

func (a *SecurityAgent) answerVulnerabilities(string) string {
	weaknesses := a.Weaknesses()
	if len(weaknesses) == 0 {
		return "No vulnerability findings in the current round."
	}
	return fmt.Sprintf("%d security findings; worst: %s", len(weaknesses), weaknesses[0].Description)
}

func (a *SecurityAgent) answerExposure(string) string {
	for _, o := range a.Weaknesses() {
		if o.Subject.Asset != "" {
			return o.Description
		}
	}
	return "No exposed assets detected."
}

func (a *SecurityAgent) answerAuth(string) string {
	for _, o := range a.Weaknesses() {
		if containsFold(o.Description, "authentication") {
			return o.Description
		}
	}
	return "Authentication configuration looks acceptable."
}
