package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/assetmesh/agent"
	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/internal/util"
)

// Argument shapes for the built-ins whose schemas are derived by reflection.
// compare_facilities keeps a hand-built schema because of its metric enum.
type askQuestionParams struct {
	Question string `json:"question" description:"The question to ask"`
}

type recentObservationsParams struct {
	Limit *int `json:"limit,omitempty" description:"Maximum observations to return (default 10)"`
}

type enterpriseHealthParams struct {
	Breakdown bool `json:"breakdown,omitempty" description:"Include per-facility health snapshots"`
}

type executiveSummaryParams struct {
	Hours *int `json:"hours,omitempty" description:"Trailing window in hours (default 24)"`
}

type broadcastQuestionParams struct {
	Question   string   `json:"question" description:"The question to broadcast"`
	Facilities []string `json:"facilities,omitempty" description:"Facility codes to ask; all facilities when omitted"`
}

// RegisterEnterpriseTools registers the coordinator-level built-ins.
func RegisterEnterpriseTools(r *Registry, coord *agent.CoordinatorAgent) error {
	tools := []Tool{
		newListFacilitiesTool(coord),
		newEnterpriseHealthTool(coord),
		newCompareFacilitiesTool(coord),
		newObservationRoundTool(coord),
		newExecutiveSummaryTool(coord),
		newBroadcastQuestionTool(coord),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFacilityTools registers the five per-facility tools, prefixed with
// the facility code in lower case (e.g. det_get_plant_health).
func RegisterFacilityTools(r *Registry, f *agent.FacilityAgent) error {
	prefix := strings.ToLower(f.Info().FacilityCode)
	facility := f.Info().Facility

	tools := []Tool{
		NewFunctionTool(
			prefix+"_get_plant_health",
			fmt.Sprintf("Get the composite health score and status for %s.", facility),
			objectSchema(nil, nil),
			func(_ context.Context, _ map[string]any) (any, error) {
				return f.PlantHealth(), nil
			},
		),
		NewFunctionTool(
			prefix+"_get_weaknesses",
			fmt.Sprintf("List current weaknesses and anomalies for %s, worst first.", facility),
			objectSchema(nil, nil),
			func(_ context.Context, _ map[string]any) (any, error) {
				return f.Weaknesses(), nil
			},
		),
		NewFunctionTool(
			prefix+"_get_strengths",
			fmt.Sprintf("List current strengths for %s.", facility),
			objectSchema(nil, nil),
			func(_ context.Context, _ map[string]any) (any, error) {
				return f.Strengths(), nil
			},
		),
		NewFunctionTool(
			prefix+"_get_recent_observations",
			fmt.Sprintf("Get the most recent observations for %s.", facility),
			util.CreateSchema(recentObservationsParams{}),
			func(_ context.Context, args map[string]any) (any, error) {
				return f.RecentObservations(intArg(args, "limit", 10)), nil
			},
		),
		NewFunctionTool(
			prefix+"_ask_question",
			fmt.Sprintf("Ask the %s facility agent a free-form question.", facility),
			util.CreateSchema(askQuestionParams{}),
			func(ctx context.Context, args map[string]any) (any, error) {
				question, _ := args["question"].(string)
				return f.AnswerQuestion(ctx, question), nil
			},
		),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func newListFacilitiesTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"list_facilities",
		"List all registered facilities with code, asset count and current health status.",
		objectSchema(nil, nil),
		func(_ context.Context, _ map[string]any) (any, error) {
			type row struct {
				Facility string            `json:"facility"`
				Code     string            `json:"code"`
				Assets   int               `json:"assets"`
				Score    float64           `json:"health_score"`
				Status   core.HealthStatus `json:"health_status"`
			}
			var rows []row
			for _, f := range coord.Facilities() {
				info := f.Info()
				health := f.PlantHealth()
				assets := 0
				if assetCtx := f.Context(); assetCtx != nil {
					assets = len(assetCtx.Assets)
				}
				rows = append(rows, row{
					Facility: info.Facility,
					Code:     info.FacilityCode,
					Assets:   assets,
					Score:    health.Score,
					Status:   health.Status,
				})
			}
			return rows, nil
		},
	)
}

func newEnterpriseHealthTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"get_enterprise_health",
		"Get the enterprise-wide health rollup, optionally with a per-facility breakdown.",
		util.CreateSchema(enterpriseHealthParams{}),
		func(_ context.Context, args map[string]any) (any, error) {
			summary := coord.GenerateExecutiveSummary(time.Time{})
			if breakdown, _ := args["breakdown"].(bool); breakdown {
				return map[string]any{
					"overall":    summary.Overall,
					"facilities": summary.Facilities,
				}, nil
			}
			return summary.Overall, nil
		},
	)
}

func newCompareFacilitiesTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"compare_facilities",
		"Compare all facilities on one metric: health, risk, lifecycle or coverage.",
		objectSchema(map[string]any{
			"metric": map[string]any{
				"type":        "string",
				"description": "Comparison metric",
				"enum":        []string{"health", "risk", "lifecycle", "coverage"},
			},
		}, []string{"metric"}),
		func(_ context.Context, args map[string]any) (any, error) {
			metric, _ := args["metric"].(string)
			facilities := coord.Facilities()
			switch metric {
			case "health":
				return compareHealth(facilities), nil
			case "risk":
				return compareRisk(facilities), nil
			case "lifecycle":
				return compareLifecycle(facilities), nil
			case "coverage":
				return compareCoverage(facilities), nil
			default:
				return nil, fmt.Errorf("unsupported metric %q", metric)
			}
		},
	)
}

func newObservationRoundTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"trigger_observation_round",
		"Run a synchronized observation round across every facility and return the round result.",
		objectSchema(nil, nil),
		func(ctx context.Context, _ map[string]any) (any, error) {
			return coord.StartObservationRound(ctx)
		},
	)
}

func newExecutiveSummaryTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"generate_executive_summary",
		"Generate the enterprise executive summary over a trailing time window.",
		util.CreateSchema(executiveSummaryParams{}),
		func(_ context.Context, args map[string]any) (any, error) {
			hours := intArg(args, "hours", 24)
			since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
			return coord.GenerateExecutiveSummary(since), nil
		},
	)
}

func newBroadcastQuestionTool(coord *agent.CoordinatorAgent) Tool {
	return NewFunctionTool(
		"broadcast_question",
		"Ask a question of every facility agent (or a subset by code) and aggregate the answers.",
		util.CreateSchema(broadcastQuestionParams{}),
		func(ctx context.Context, args map[string]any) (any, error) {
			question, _ := args["question"].(string)

			subset := make(map[string]bool)
			if raw, ok := args["facilities"].([]any); ok {
				for _, v := range raw {
					if code, ok := v.(string); ok {
						subset[strings.ToUpper(code)] = true
					}
				}
			}

			answers := make(map[string]agent.Answer)
			for _, f := range coord.Facilities() {
				info := f.Info()
				if len(subset) > 0 && !subset[strings.ToUpper(info.FacilityCode)] {
					continue
				}
				answers[info.FacilityCode] = f.AnswerQuestion(ctx, question)
			}
			if len(answers) == 0 {
				return nil, fmt.Errorf("no matching facilities")
			}
			return answers, nil
		},
	)
}

type healthRow struct {
	Facility string            `json:"facility"`
	Code     string            `json:"code"`
	Score    float64           `json:"score"`
	Status   core.HealthStatus `json:"status"`
}

// compareHealth sorts best first so the ranking reads top-down.
func compareHealth(facilities []*agent.FacilityAgent) []healthRow {
	rows := make([]healthRow, 0, len(facilities))
	for _, f := range facilities {
		info := f.Info()
		health := f.PlantHealth()
		rows = append(rows, healthRow{
			Facility: info.Facility,
			Code:     info.FacilityCode,
			Score:    health.Score,
			Status:   health.Status,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

type riskRow struct {
	Facility       string  `json:"facility"`
	Code           string  `json:"code"`
	AverageRisk    float64 `json:"average_risk"`
	CriticalAssets int     `json:"critical_assets"`
	HighAssets     int     `json:"high_assets"`
}

// compareRisk sorts worst first.
func compareRisk(facilities []*agent.FacilityAgent) []riskRow {
	rows := make([]riskRow, 0, len(facilities))
	for _, f := range facilities {
		info := f.Info()
		row := riskRow{Facility: info.Facility, Code: info.FacilityCode}
		if assetCtx := f.Context(); assetCtx != nil && len(assetCtx.Assets) > 0 {
			var sum float64
			for _, asset := range assetCtx.Assets {
				sum += asset.RiskScore
				switch {
				case asset.RiskScore >= 80:
					row.CriticalAssets++
				case asset.RiskScore >= 60:
					row.HighAssets++
				}
			}
			row.AverageRisk = sum / float64(len(assetCtx.Assets))
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].AverageRisk > rows[j].AverageRisk })
	return rows
}

type lifecycleRow struct {
	Facility     string `json:"facility"`
	Code         string `json:"code"`
	Total        int    `json:"total"`
	Current      int    `json:"current"`
	Aging        int    `json:"aging"`
	EndOfSupport int    `json:"end_of_support"`
	Obsolete     int    `json:"obsolete"`
}

// compareLifecycle sorts by obsolete plus end-of-support count, worst first.
func compareLifecycle(facilities []*agent.FacilityAgent) []lifecycleRow {
	rows := make([]lifecycleRow, 0, len(facilities))
	for _, f := range facilities {
		info := f.Info()
		row := lifecycleRow{Facility: info.Facility, Code: info.FacilityCode}
		if assetCtx := f.Context(); assetCtx != nil {
			row.Total = len(assetCtx.Assets)
			for _, asset := range assetCtx.Assets {
				switch asset.LifecycleStage {
				case core.StageCurrent:
					row.Current++
				case core.StageAging, core.StageApproachingEOL:
					row.Aging++
				case core.StageEndOfSupport:
					row.EndOfSupport++
				case core.StageObsolete:
					row.Obsolete++
				}
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Obsolete+rows[i].EndOfSupport > rows[j].Obsolete+rows[j].EndOfSupport
	})
	return rows
}

type coverageRow struct {
	Facility  string  `json:"facility"`
	Code      string  `json:"code"`
	MatchRate float64 `json:"match_rate"`
	Matched   int     `json:"matched"`
	Total     int     `json:"total"`
}

// compareCoverage sorts worst coverage first.
func compareCoverage(facilities []*agent.FacilityAgent) []coverageRow {
	rows := make([]coverageRow, 0, len(facilities))
	for _, f := range facilities {
		info := f.Info()
		row := coverageRow{Facility: info.Facility, Code: info.FacilityCode}
		if assetCtx := f.Context(); assetCtx != nil {
			row.MatchRate = assetCtx.MatchRate()
			row.Total = len(assetCtx.Assets)
			for _, asset := range assetCtx.Assets {
				if asset.Matched {
					row.Matched++
				}
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MatchRate < rows[j].MatchRate })
	return rows
}

// objectSchema builds the minimal JSON-schema map used across the registry.
func objectSchema(properties map[string]any, required []string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
