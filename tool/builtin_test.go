package tool

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/assetmesh/agent"
	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/internal/util"
)

func healthyAssets(n int) []core.Asset {
	assets := make([]core.Asset, n)
	for i := range assets {
		assets[i] = core.Asset{
			Tag:            core.NewID(),
			Unit:           "U1",
			DeviceType:     "HMI",
			Criticality:    "medium",
			AuthMethod:     "unique",
			LifecycleStage: core.StageCurrent,
			Matched:        true,
		}
	}
	return assets
}

func exposedAssets(n int) []core.Asset {
	assets := healthyAssets(n)
	for i := range assets {
		assets[i].InternetExposed = true
		assets[i].SafetyRated = true
	}
	return assets
}

func newTestEnterprise(t *testing.T) (*Registry, *agent.CoordinatorAgent) {
	t.Helper()
	room := bus.New()
	coord := agent.NewCoordinatorAgent(room)

	detroit := agent.NewFacilityAgent("Detroit", "DET", room)
	detroit.UpdateContext(&core.AssetContext{Facility: "Detroit", FacilityCode: "DET", Assets: healthyAssets(6)})
	coord.RegisterFacility(detroit)

	juarez := agent.NewFacilityAgent("Juarez", "JUA", room)
	juarez.UpdateContext(&core.AssetContext{Facility: "Juarez", FacilityCode: "JUA", Assets: exposedAssets(4)})
	coord.RegisterFacility(juarez)

	r := NewRegistry()
	assert.NoError(t, RegisterEnterpriseTools(r, coord))
	assert.NoError(t, RegisterFacilityTools(r, detroit))
	return r, coord
}

func TestRegisterBuiltinsListsAllTools(t *testing.T) {
	r, _ := newTestEnterprise(t)

	tools := r.ListTools()
	assert.Len(t, tools, 11)

	names := make([]string, 0, len(tools))
	for _, d := range tools {
		names = append(names, d.Name)
	}
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "list_facilities")
	assert.Contains(t, names, "det_get_plant_health")
	assert.Contains(t, names, "det_ask_question")
}

func TestBuiltinSchemasDerivedFromArgStructs(t *testing.T) {
	r, _ := newTestEnterprise(t)

	broadcast, ok := r.Get("broadcast_question")
	assert.True(t, ok)
	assert.Equal(t, util.CreateSchema(broadcastQuestionParams{}), broadcast.Parameters())
	assert.Equal(t, []string{"question"}, broadcast.Parameters()["required"])

	props := broadcast.Parameters()["properties"].(map[string]any)
	assert.Equal(t, "array", props["facilities"].(map[string]any)["type"])

	ask, ok := r.Get("det_ask_question")
	assert.True(t, ok)
	assert.Equal(t, []string{"question"}, ask.Parameters()["required"])
}

func TestTriggerObservationRoundTool(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "trigger_observation_round", nil)
	assert.True(t, result.Success)

	round, ok := result.Result.(agent.RoundResult)
	assert.True(t, ok)
	assert.Equal(t, 2, round.Facilities)
	assert.GreaterOrEqual(t, round.Criticals, 4)
}

func TestListFacilitiesTool(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "list_facilities", nil)
	assert.True(t, result.Success)

	raw, err := json.Marshal(result.Result)
	assert.NoError(t, err)

	var rows []struct {
		Facility string  `json:"facility"`
		Code     string  `json:"code"`
		Assets   int     `json:"assets"`
		Score    float64 `json:"health_score"`
		Status   string  `json:"health_status"`
	}
	assert.NoError(t, json.Unmarshal(raw, &rows))
	assert.Len(t, rows, 2)
	assert.Equal(t, "DET", rows[0].Code)
	assert.Equal(t, 6, rows[0].Assets)
}

func TestCompareFacilitiesHealth(t *testing.T) {
	r, coord := newTestEnterprise(t)
	_, err := coord.StartObservationRound(context.Background())
	assert.NoError(t, err)

	result := r.CallTool(context.Background(), "compare_facilities", map[string]any{"metric": "health"})
	assert.True(t, result.Success)

	rows, ok := result.Result.([]healthRow)
	assert.True(t, ok)
	assert.Len(t, rows, 2)
	assert.Equal(t, "DET", rows[0].Code, "healthiest facility ranks first")
	assert.Greater(t, rows[0].Score, rows[1].Score)
}

func TestCompareFacilitiesLifecycleAndCoverage(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "compare_facilities", map[string]any{"metric": "lifecycle"})
	assert.True(t, result.Success)
	lcRows := result.Result.([]lifecycleRow)
	assert.Len(t, lcRows, 2)
	assert.Equal(t, 10, lcRows[0].Total+lcRows[1].Total)
	assert.Equal(t, 10, lcRows[0].Current+lcRows[1].Current)

	result = r.CallTool(context.Background(), "compare_facilities", map[string]any{"metric": "coverage"})
	assert.True(t, result.Success)
	covRows := result.Result.([]coverageRow)
	assert.Equal(t, 1.0, covRows[0].MatchRate)
}

func TestCompareFacilitiesRejectsUnknownMetric(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "compare_facilities", map[string]any{"metric": "vibes"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "must be one of")
}

func TestGetEnterpriseHealthTool(t *testing.T) {
	r, coord := newTestEnterprise(t)
	_, err := coord.StartObservationRound(context.Background())
	assert.NoError(t, err)

	result := r.CallTool(context.Background(), "get_enterprise_health", nil)
	assert.True(t, result.Success)
	overall, ok := result.Result.(agent.OverallHealth)
	assert.True(t, ok)
	assert.Equal(t, core.HealthCritical, overall.Status)

	result = r.CallTool(context.Background(), "get_enterprise_health", map[string]any{"breakdown": true})
	assert.True(t, result.Success)
	detail, ok := result.Result.(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, detail, "overall")
	assert.Contains(t, detail, "facilities")
}

func TestGenerateExecutiveSummaryTool(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "generate_executive_summary", map[string]any{"hours": float64(48)})
	assert.True(t, result.Success)
	summary, ok := result.Result.(agent.ExecutiveSummary)
	assert.True(t, ok)
	assert.Len(t, summary.Facilities, 2)
}

func TestBroadcastQuestionTool(t *testing.T) {
	r, _ := newTestEnterprise(t)

	result := r.CallTool(context.Background(), "broadcast_question", map[string]any{
		"question":   "any spof?",
		"facilities": []any{"jua"},
	})
	assert.True(t, result.Success)

	answers, ok := result.Result.(map[string]agent.Answer)
	assert.True(t, ok)
	assert.Len(t, answers, 1)
	assert.Contains(t, answers, "JUA")

	result = r.CallTool(context.Background(), "broadcast_question", map[string]any{
		"question":   "anyone there?",
		"facilities": []any{"XXX"},
	})
	assert.False(t, result.Success)
	assert.Equal(t, "no matching facilities", result.Error)

	result = r.CallTool(context.Background(), "broadcast_question", map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "required field is missing")
}

func TestFacilityTools(t *testing.T) {
	r, coord := newTestEnterprise(t)
	_, err := coord.StartObservationRound(context.Background())
	assert.NoError(t, err)

	result := r.CallTool(context.Background(), "det_get_plant_health", nil)
	assert.True(t, result.Success)
	health, ok := result.Result.(core.HealthSnapshot)
	assert.True(t, ok)
	assert.Equal(t, core.HealthHealthy, health.Status)

	result = r.CallTool(context.Background(), "det_get_weaknesses", nil)
	assert.True(t, result.Success)

	result = r.CallTool(context.Background(), "det_get_recent_observations", map[string]any{"limit": float64(2)})
	assert.True(t, result.Success)
	obs, ok := result.Result.([]core.Observation)
	assert.True(t, ok)
	assert.LessOrEqual(t, len(obs), 2)

	result = r.CallTool(context.Background(), "det_ask_question", map[string]any{"question": "how is the overall health?"})
	assert.True(t, result.Success)
	answer, ok := result.Result.(agent.Answer)
	assert.True(t, ok)
	assert.Contains(t, answer.Content, "Detroit health is")
}
