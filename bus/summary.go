package bus

import (
	"sort"
	"time"

	"github.com/hupe1980/assetmesh/core"
)

// SentimentLabel classifies a normalized sentiment score.
type SentimentLabel string

const (
	SentimentLabelPositive   SentimentLabel = "positive"
	SentimentLabelNeutral    SentimentLabel = "neutral"
	SentimentLabelConcerning SentimentLabel = "concerning"
)

// Summary is the bus digest over a time range, optionally scoped to one
// facility.
type Summary struct {
	Since            time.Time                 `json:"since"`
	Facility         string                    `json:"facility,omitempty"`
	MessageCount     int                       `json:"message_count"`
	ObservationCount int                       `json:"observation_count"`
	BySeverity       map[core.Severity]int     `json:"by_severity"`
	SentimentScore   float64                   `json:"sentiment_score"`
	SentimentLabel   SentimentLabel            `json:"sentiment_label"`
	Recommendations  []string                  `json:"recommendations,omitempty"`
	Stats            Stats                     `json:"stats"`
}

// rankedRecommendation accumulates dedup state while ranking.
type rankedRecommendation struct {
	text      string
	frequency int
	bestRank  int // lowest severity rank seen among source observations
}

// Summarize buckets observations in the range by severity, computes a
// bounded sentiment score over the messages and extracts deduplicated
// recommendations ranked by severity then frequency. The sentiment score is
// the mean per-message sentiment weight clamped to [-1,1]; threshold sets
// the cut points for the concerning/positive labels (0.3 when zero).
//
// A non-empty facility scopes both sides of the digest: observations by
// subject facility and messages by their facility metadata. Either the
// facility name or its code selects the same scope; the aliases come from
// the registered agents.
func (b *BreakRoom) Summarize(since time.Time, facility string, threshold float64) Summary {
	if threshold <= 0 {
		threshold = 0.3
	}

	summary := Summary{
		Since:      since,
		Facility:   facility,
		BySeverity: make(map[core.Severity]int),
		Stats:      b.StatsSnapshot(),
	}

	b.mu.RLock()
	aliases := b.facilityAliasesLocked(facility)
	var weightSum float64
	for _, m := range b.messages {
		if !since.IsZero() && m.Timestamp.Before(since) {
			continue
		}
		if m.AgentID == "system" {
			continue
		}
		if facility != "" && !aliases[m.Metadata[MetadataFacility]] {
			continue
		}
		summary.MessageCount++
		weightSum += m.Sentiment.Weight()
	}

	ranked := make(map[string]*rankedRecommendation)
	for _, o := range b.observations {
		if !since.IsZero() && o.Timestamp.Before(since) {
			continue
		}
		if facility != "" && !aliases[o.Subject.Facility] {
			continue
		}
		summary.ObservationCount++
		summary.BySeverity[o.Severity]++
		for _, rec := range o.Recommendations {
			r, ok := ranked[rec]
			if !ok {
				r = &rankedRecommendation{text: rec, bestRank: o.Severity.Rank()}
				ranked[rec] = r
			}
			r.frequency++
			if rank := o.Severity.Rank(); rank < r.bestRank {
				r.bestRank = rank
			}
		}
	}
	b.mu.RUnlock()

	if summary.MessageCount > 0 {
		score := weightSum / float64(summary.MessageCount)
		if score > 1 {
			score = 1
		}
		if score < -1 {
			score = -1
		}
		summary.SentimentScore = score
	}
	switch {
	case summary.SentimentScore <= -threshold:
		summary.SentimentLabel = SentimentLabelConcerning
	case summary.SentimentScore >= threshold:
		summary.SentimentLabel = SentimentLabelPositive
	default:
		summary.SentimentLabel = SentimentLabelNeutral
	}

	recs := make([]*rankedRecommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].bestRank != recs[j].bestRank {
			return recs[i].bestRank < recs[j].bestRank
		}
		if recs[i].frequency != recs[j].frequency {
			return recs[i].frequency > recs[j].frequency
		}
		return recs[i].text < recs[j].text
	})
	const maxRecommendations = 5
	for i, r := range recs {
		if i == maxRecommendations {
			break
		}
		summary.Recommendations = append(summary.Recommendations, r.text)
	}

	return summary
}

// facilityAliasesLocked collects the identifiers that select one facility:
// the argument itself plus the name and code of every registered agent
// affiliated with it. Messages are tagged with the facility code while
// observation subjects carry the facility name, so both must match.
func (b *BreakRoom) facilityAliasesLocked(facility string) map[string]bool {
	aliases := map[string]bool{facility: true}
	if facility == "" {
		return aliases
	}
	for _, a := range b.agents {
		if a.info.Facility != facility && a.info.FacilityCode != facility {
			continue
		}
		if a.info.Facility != "" {
			aliases[a.info.Facility] = true
		}
		if a.info.FacilityCode != "" {
			aliases[a.info.FacilityCode] = true
		}
	}
	return aliases
}
