package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingTableMatchFirstWins(t *testing.T) {
	table := RoutingTable{
		{Keywords: []string{"patch"}, Handle: func(string) string { return "patching" }},
		{Keywords: []string{"patch", "vulnerab"}, Handle: func(string) string { return "second" }},
	}

	answer, ok := table.Match("when is the next PATCH window?")
	assert.True(t, ok)
	assert.Equal(t, "patching", answer)
}

func TestRoutingTableMatchCaseInsensitive(t *testing.T) {
	table := RoutingTable{
		{Keywords: []string{"spof"}, Handle: func(string) string { return "spof answer" }},
	}

	answer, ok := table.Match("Any SPOF in the press unit?")
	assert.True(t, ok)
	assert.Equal(t, "spof answer", answer)
}

func TestRoutingTableNoMatch(t *testing.T) {
	table := RoutingTable{
		{Keywords: []string{"risk"}, Handle: func(string) string { return "risk" }},
	}
	_, ok := table.Match("how is the weather")
	assert.False(t, ok)
}

func TestRoutingTableHandlerReceivesQuestion(t *testing.T) {
	var got string
	table := RoutingTable{
		{Keywords: []string{"risk"}, Handle: func(q string) string { got = q; return "" }},
	}
	table.Match("what is the risk?")
	assert.Equal(t, "what is the risk?", got)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("Single Point Of Failure", "single point"))
	assert.False(t, containsFold("redundant", "single point"))
}
