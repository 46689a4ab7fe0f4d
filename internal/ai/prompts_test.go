package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraphJSONPlainObject(t *testing.T) {
	raw := `{"nodes":[{"label":"Alice","type":"person"},{"label":"Bob","type":"person"}],
		"edges":[{"source_label":"Alice","target_label":"Bob","type":"called"}]}`

	nodes, edges, err := parseGraphJSON(raw)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, "called", edges[0].Type)
}

func TestParseGraphJSONStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"nodes\":[{\"label\":\"Alice\",\"type\":\"person\"}],\"edges\":[]}\n```"

	nodes, _, err := parseGraphJSON(raw)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Alice", nodes[0].Label)
}

func TestParseGraphJSONToleratesLeadingProse(t *testing.T) {
	raw := `Here is the extracted graph:
{"nodes":[{"label":"Alice","type":"person"}],"edges":[]}`

	nodes, _, err := parseGraphJSON(raw)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestParseGraphJSONDropsDanglingEdges(t *testing.T) {
	raw := `{"nodes":[{"label":"Alice","type":"person"}],
		"edges":[
			{"source_label":"Alice","target_label":"Ghost","type":"called"},
			{"source_label":"Ghost","target_label":"Alice","type":"called"}
		]}`

	nodes, edges, err := parseGraphJSON(raw)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Empty(t, edges)
}

func TestParseGraphJSONRejectsNonJSON(t *testing.T) {
	_, _, err := parseGraphJSON("the model refused to answer")
	assert.Error(t, err)

	_, _, err = parseGraphJSON(`{"nodes": broken`)
	assert.Error(t, err)
}

func TestParseTimedSegments(t *testing.T) {
	transcript := "[0.0-4.5] hello there\n[4.5-9.0] who is this\nuntimed trailing remark\n"

	segments := parseTimedSegments(transcript)
	require.Len(t, segments, 3)

	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 4.5, segments[0].End)
	assert.Equal(t, "hello there", segments[0].Text)

	assert.Equal(t, 4.5, segments[1].Start)
	assert.Equal(t, "who is this", segments[1].Text)

	// Untimed lines inherit the last known offset
	assert.Equal(t, 9.0, segments[2].Start)
	assert.Equal(t, 9.0, segments[2].End)
	assert.Equal(t, "untimed trailing remark", segments[2].Text)
}

func TestParseTimedSegmentsEmpty(t *testing.T) {
	assert.Empty(t, parseTimedSegments(""))
	assert.Empty(t, parseTimedSegments("\n\n"))
}

func TestSummaryPromptHintsAreDeterministic(t *testing.T) {
	hints := map[string]string{"source": "report.txt", "media": "document"}
	first := summaryPrompt("body", hints)
	second := summaryPrompt("body", hints)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "- media: document")
	assert.Contains(t, first, "- source: report.txt")
	assert.Contains(t, first, "body")
}
