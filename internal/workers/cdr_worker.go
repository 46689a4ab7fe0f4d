package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sentinelai/sentinel/internal/models"
)

// processCDR runs parsing -> suspect_matching -> summarization for a call
// data record artifact. CDR artifacts skip embeddings: the normalized rows
// are structured data, not retrieval text.
func (p *Pipeline) processCDR(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	var normalized string
	err := p.runStage(ctx, artifact, models.StageParsing, func(ctx context.Context) error {
		data, err := p.readBlob(ctx, artifact.BlobPaths["original"])
		if err != nil {
			return err
		}
		text, err := parseCDR(data)
		if err != nil {
			return err
		}
		normalized = text
		return p.writeDerivative(ctx, artifact, models.StageParsing, text)
	})
	if err != nil {
		return err
	}

	var report string
	err = p.runStage(ctx, artifact, models.StageSuspectMatching, func(ctx context.Context) error {
		suspects, err := p.storage.SuspectStorage().GetSuspectsByJob(ctx, artifact.JobID)
		if err != nil {
			return err
		}
		report = matchSuspects(normalized, suspects)
		return p.writeDerivative(ctx, artifact, models.StageSuspectMatching, report)
	})
	if err != nil {
		return err
	}

	hints := map[string]string{"source": artifact.OriginalFilename, "media": "cdr"}
	if err := p.summarizationStage(ctx, artifact, report, hints); err != nil {
		return err
	}

	return p.finishMediaStages(ctx, artifact, item)
}

// cdrColumnAliases maps the column spellings seen in telecom exports onto
// canonical field names
var cdrColumnAliases = map[string]string{
	"caller":      "caller",
	"a_number":    "caller",
	"anumber":     "caller",
	"calling":     "caller",
	"msisdn":      "caller",
	"callee":      "callee",
	"b_number":    "callee",
	"bnumber":     "callee",
	"called":      "callee",
	"start":       "time",
	"start_time":  "time",
	"timestamp":   "time",
	"date":        "time",
	"datetime":    "time",
	"duration":    "duration",
	"dur":         "duration",
	"seconds":     "duration",
	"imei":        "imei",
	"imsi":        "imsi",
	"cell":        "cell",
	"cell_id":     "cell",
	"lac":         "cell",
	"type":        "type",
	"call_type":   "type",
	"direction":   "type",
}

// parseCDR reads a CSV export and renders each record as one normalized
// "field=value" line. Unknown columns pass through under their own name.
func parseCDR(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return "", fmt.Errorf("failed to read CDR header: %w", err)
	}
	fields := make([]string, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := cdrColumnAliases[key]; ok {
			fields[i] = canonical
		} else {
			fields[i] = key
		}
	}

	var b strings.Builder
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse CDR row %d: %w", rows+1, err)
		}
		var parts []string
		for i, value := range record {
			value = strings.TrimSpace(value)
			if value == "" || i >= len(fields) {
				continue
			}
			parts = append(parts, fields[i]+"="+value)
		}
		if len(parts) > 0 {
			b.WriteString(strings.Join(parts, " "))
			b.WriteString("\n")
			rows++
		}
	}
	if rows == 0 {
		return "", fmt.Errorf("CDR file contains no records")
	}
	return b.String(), nil
}

// matchSuspects scans the normalized records for each suspect's field values
// and appends a match report. Phone-like values compare digits-only so
// formatting differences do not hide hits.
func matchSuspects(normalized string, suspects []*models.Suspect) string {
	lines := strings.Split(strings.TrimRight(normalized, "\n"), "\n")

	var b strings.Builder
	b.WriteString(normalized)
	b.WriteString("\n=== Suspect matches ===\n")

	total := 0
	for _, suspect := range suspects {
		for _, field := range suspect.Fields {
			needle := strings.TrimSpace(field.Value)
			if needle == "" {
				continue
			}
			digitNeedle := digitsOnly(needle)
			hits := 0
			for i, line := range lines {
				if strings.Contains(line, needle) ||
					(len(digitNeedle) >= 6 && strings.Contains(digitsOnly(line), digitNeedle)) {
					hits++
					if hits <= 20 {
						fmt.Fprintf(&b, "suspect=%s field=%s record=%d: %s\n", suspect.ID, field.Key, i+1, line)
					}
				}
			}
			if hits > 20 {
				fmt.Fprintf(&b, "suspect=%s field=%s: %d further matches\n", suspect.ID, field.Key, hits-20)
			}
			total += hits
		}
	}
	if total == 0 {
		b.WriteString("no suspect matches\n")
	}
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
