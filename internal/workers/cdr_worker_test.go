package workers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel/internal/models"
)

func TestParseCDRNormalizesColumnAliases(t *testing.T) {
	csvData := []byte("A_Number,B_Number,Start Time,Dur,IMEI\n" +
		"+61 400 111 222,+61 400 333 444,2026-08-01T10:00:00Z,120,490154203237518\n")

	text, err := parseCDR(csvData)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "caller=+61 400 111 222")
	assert.Contains(t, lines[0], "callee=+61 400 333 444")
	assert.Contains(t, lines[0], "time=2026-08-01T10:00:00Z")
	assert.Contains(t, lines[0], "duration=120")
	assert.Contains(t, lines[0], "imei=490154203237518")
}

func TestParseCDRUnknownColumnsPassThrough(t *testing.T) {
	csvData := []byte("caller,callee,tower_azimuth\n0400111222,0400333444,135\n")

	text, err := parseCDR(csvData)
	require.NoError(t, err)
	assert.Contains(t, text, "tower_azimuth=135")
}

func TestParseCDRSkipsEmptyValues(t *testing.T) {
	csvData := []byte("caller,callee,imei\n0400111222,,\n")

	text, err := parseCDR(csvData)
	require.NoError(t, err)
	assert.Equal(t, "caller=0400111222\n", text)
}

func TestParseCDRRaggedRows(t *testing.T) {
	csvData := []byte("caller,callee,duration\n0400111222,0400333444\n0400555666,0400777888,60,extra\n")

	text, err := parseCDR(csvData)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "caller=0400111222 callee=0400333444", lines[0])
	// Trailing fields beyond the header are dropped
	assert.Equal(t, "caller=0400555666 callee=0400777888 duration=60", lines[1])
}

func TestParseCDRNoRecords(t *testing.T) {
	_, err := parseCDR([]byte("caller,callee\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")
}

func TestMatchSuspectsDigitsOnlyComparison(t *testing.T) {
	normalized := "caller=+61-400-111-222 callee=0400333444 duration=120\n" +
		"caller=0400999888 callee=0400777666 duration=30\n"
	suspects := []*models.Suspect{
		{
			ID:    "sus_1",
			JobID: "mgr/mgr/job-1",
			Fields: []models.SuspectField{
				{ID: "f1", Key: "phone", Value: "0400 111 222"},
			},
		},
	}

	report := matchSuspects(normalized, suspects)

	// Formatting differences must not hide the hit
	assert.Contains(t, report, "suspect=sus_1 field=phone record=1:")
	assert.NotContains(t, report, "record=2:")
	assert.NotContains(t, report, "no suspect matches")
}

func TestMatchSuspectsExactSubstring(t *testing.T) {
	normalized := "caller=0400111222 imei=490154203237518\n"
	suspects := []*models.Suspect{
		{
			ID:    "sus_1",
			JobID: "mgr/mgr/job-1",
			Fields: []models.SuspectField{
				{ID: "f1", Key: "imei", Value: "490154203237518"},
				{ID: "f2", Key: "alias", Value: ""},
			},
		},
	}

	report := matchSuspects(normalized, suspects)
	assert.Contains(t, report, "field=imei record=1:")
}

func TestMatchSuspectsNoHits(t *testing.T) {
	normalized := "caller=0400111222 callee=0400333444\n"
	suspects := []*models.Suspect{
		{
			ID:     "sus_1",
			JobID:  "mgr/mgr/job-1",
			Fields: []models.SuspectField{{ID: "f1", Key: "phone", Value: "0499000000"}},
		},
	}

	report := matchSuspects(normalized, suspects)
	assert.Contains(t, report, "no suspect matches")
	// The normalized records are preserved ahead of the report
	assert.True(t, strings.HasPrefix(report, normalized))
}

func TestMatchSuspectsCapsReportedLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("caller=0400111222 callee=0400333444\n")
	}
	suspects := []*models.Suspect{
		{
			ID:     "sus_1",
			JobID:  "mgr/mgr/job-1",
			Fields: []models.SuspectField{{ID: "f1", Key: "phone", Value: "0400111222"}},
		},
	}

	report := matchSuspects(b.String(), suspects)
	assert.Equal(t, 20, strings.Count(report, "record="))
	assert.Contains(t, report, "5 further matches")
}
