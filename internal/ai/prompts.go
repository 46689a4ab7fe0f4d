package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

func summaryPrompt(text string, hints map[string]string) string {
	var b strings.Builder
	b.WriteString("Summarize the following evidence for an investigation file. ")
	b.WriteString("Cover the key people, places, events, and times in under 300 words. ")
	b.WriteString("Return only the summary.\n")
	if len(hints) > 0 {
		keys := make([]string, 0, len(hints))
		for k := range hints {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, hints[k])
		}
	}
	b.WriteString("\n")
	b.WriteString(text)
	return b.String()
}

func graphPrompt(text string) string {
	return `Extract the entities and relationships from the evidence below.

Respond with a single JSON object:
{
  "nodes": [{"label": "...", "type": "person|organization|location|phone|vehicle|event|other", "properties": {}}],
  "edges": [{"source_label": "...", "target_label": "...", "type": "...", "properties": {}}]
}

Every edge must reference node labels from the nodes array. Use short verb
phrases for edge types (e.g. "called", "met_with", "owns", "located_at").

Evidence:
` + text
}

type graphPayload struct {
	Nodes []interfaces.ExtractedNode `json:"nodes"`
	Edges []interfaces.ExtractedEdge `json:"edges"`
}

// parseGraphJSON parses the model's JSON reply, tolerating markdown code
// fences and leading prose.
func parseGraphJSON(raw string) ([]interfaces.ExtractedNode, []interfaces.ExtractedEdge, error) {
	cleaned := stripCodeFence(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, nil, fmt.Errorf("no JSON object in graph extraction response")
	}

	var payload graphPayload
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to parse graph extraction response: %w", err)
	}

	// Drop edges whose endpoints are not in the node set
	known := make(map[string]bool, len(payload.Nodes))
	for _, n := range payload.Nodes {
		known[n.Label] = true
	}
	edges := payload.Edges[:0]
	for _, e := range payload.Edges {
		if known[e.SourceLabel] && known[e.TargetLabel] {
			edges = append(edges, e)
		}
	}
	return payload.Nodes, edges, nil
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

// parseTimedSegments reads "[start-end] text" transcript lines. Lines that
// do not match the shape become untimed segments so no speech is lost.
func parseTimedSegments(transcript string) []interfaces.TranscriptSegment {
	var segments []interfaces.TranscriptSegment
	var lastEnd float64
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var start, end float64
		var rest string
		if n, err := fmt.Sscanf(line, "[%f-%f]", &start, &end); err == nil && n == 2 {
			if idx := strings.Index(line, "]"); idx >= 0 {
				rest = strings.TrimSpace(line[idx+1:])
			}
			segments = append(segments, interfaces.TranscriptSegment{Start: start, End: end, Text: rest})
			lastEnd = end
			continue
		}
		segments = append(segments, interfaces.TranscriptSegment{Start: lastEnd, End: lastEnd, Text: line})
	}
	return segments
}
