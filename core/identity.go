package core

// Settings holds per-agent behavior switches.
type Settings struct {
	// AutoRespond makes the agent answer directed or broadcast questions it
	// hears on the bus without being asked through the tool surface.
	AutoRespond bool `json:"auto_respond"`
	// PostLimit caps how many weakness observations an agent posts to the
	// bus per observe pass.
	PostLimit int `json:"post_limit"`
}

// AgentInfo is the immutable identity of an agent. Role is fixed at
// construction; Facility is empty for the coordinator.
type AgentInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         Role     `json:"role"`
	Facility     string   `json:"facility,omitempty"`
	FacilityCode string   `json:"facility_code,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Settings     Settings `json:"settings"`
}
