package agent

import "strings"

// Route maps a keyword set to a handler producing an answer. Tables are
// plain data so matching can be unit-tested independently of any agent.
type Route struct {
	Keywords []string
	Handle   func(question string) string
}

// RoutingTable is an ordered list of routes; the first route whose keyword
// matches wins.
type RoutingTable []Route

// Match returns the answer of the first route whose keywords appear in the
// question (case-insensitive substring match).
func (rt RoutingTable) Match(question string) (string, bool) {
	q := strings.ToLower(question)
	for _, route := range rt {
		for _, kw := range route.Keywords {
			if strings.Contains(q, kw) {
				return route.Handle(question), true
			}
		}
	}
	return "", false
}

// containsFold is a case-insensitive substring check shared by the agents'
// answer handlers.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
