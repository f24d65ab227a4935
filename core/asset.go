package core

// LifecycleStage classifies where a piece of equipment sits on its support
// curve.
type LifecycleStage string

const (
	StageCurrent        LifecycleStage = "current"
	StageAging          LifecycleStage = "aging"
	StageApproachingEOL LifecycleStage = "approaching_eol"
	StageEndOfSupport   LifecycleStage = "end_of_support"
	StageObsolete       LifecycleStage = "obsolete"
)

// Asset is one discovered asset record supplied by the ingestion layer.
// Consumed read-only; agents never mutate the shared context.
type Asset struct {
	Tag             string         `json:"tag"`
	Unit            string         `json:"unit"`
	DeviceType      string         `json:"device_type"`
	Manufacturer    string         `json:"manufacturer"`
	Model           string         `json:"model,omitempty"`
	Criticality     string         `json:"criticality"` // critical, high, medium, low
	SafetyRated     bool           `json:"safety_rated"`
	IPAddress       string         `json:"ip_address,omitempty"`
	Subnet          string         `json:"subnet,omitempty"`
	VLAN            string         `json:"vlan,omitempty"`
	InternetExposed bool           `json:"internet_exposed"`
	OpenPorts       []int          `json:"open_ports,omitempty"`
	AuthMethod      string         `json:"auth_method,omitempty"` // none, default, shared, unique
	PatchAgeDays    int            `json:"patch_age_days"`
	VulnCount       int            `json:"vuln_count"`
	LifecycleStage  LifecycleStage `json:"lifecycle_stage"`
	InstallYear     int            `json:"install_year,omitempty"`
	RiskScore       float64        `json:"risk_score"`
	RiskFactors     []string       `json:"risk_factors,omitempty"`
	ControllerTag   string         `json:"controller_tag,omitempty"`
	RedundantPeer   string         `json:"redundant_peer,omitempty"`
	Matched         bool           `json:"matched"`
}

// IsController reports whether other assets in the context can depend on
// this asset.
func (a Asset) IsController() bool {
	switch a.DeviceType {
	case "PLC", "DCS", "controller", "safety_controller", "RTU":
		return true
	}
	return false
}

// BaselineAsset is one record from the authoritative asset register used by
// the gap analysis.
type BaselineAsset struct {
	Tag      string `json:"tag"`
	Unit     string `json:"unit"`
	Function string `json:"function,omitempty"`
	Matched  bool   `json:"matched"`
}

// IndustryTemplate lists the functions an industry baseline expects a
// facility of this kind to cover.
type IndustryTemplate struct {
	Industry          string   `json:"industry"`
	ExpectedFunctions []string `json:"expected_functions"`
}

// AssetContext is the shared dataset one facility's agents observe. Supplied
// by the ingestion layer; agents treat it as read-only.
type AssetContext struct {
	Facility     string            `json:"facility"`
	FacilityCode string            `json:"facility_code"`
	Assets       []Asset           `json:"assets"`
	Baseline     []BaselineAsset   `json:"baseline,omitempty"`
	Template     *IndustryTemplate `json:"template,omitempty"`
}

// AssetsByUnit groups the discovered assets by unit.
func (c *AssetContext) AssetsByUnit() map[string][]Asset {
	byUnit := make(map[string][]Asset)
	for _, a := range c.Assets {
		byUnit[a.Unit] = append(byUnit[a.Unit], a)
	}
	return byUnit
}

// Dependents returns the assets that name the given controller tag as their
// upstream controller.
func (c *AssetContext) Dependents(controllerTag string) []Asset {
	var deps []Asset
	for _, a := range c.Assets {
		if a.ControllerTag == controllerTag && a.Tag != controllerTag {
			deps = append(deps, a)
		}
	}
	return deps
}

// MatchRate is the share of baseline records matched by discovery, in [0,1].
// Returns 1 when there is no baseline.
func (c *AssetContext) MatchRate() float64 {
	if len(c.Baseline) == 0 {
		return 1
	}
	matched := 0
	for _, b := range c.Baseline {
		if b.Matched {
			matched++
		}
	}
	return float64(matched) / float64(len(c.Baseline))
}
