package sift

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileReportWriter writes a text summary of each batch grouped by category,
// plus a JSON sidecar with every per-file outcome.
type FileReportWriter struct {
	dir string
}

var _ ReportWriter = (*FileReportWriter)(nil)

func NewFileReportWriter(dir string) *FileReportWriter {
	return &FileReportWriter{dir: dir}
}

type reportFile struct {
	Path    string      `json:"path"`
	Outcome OutcomeView `json:"outcome"`
}

type reportJSON struct {
	ID             string       `json:"id"`
	StartedAt      string       `json:"started_at"`
	Total          int          `json:"total"`
	Completed      int          `json:"completed"`
	Failed         int          `json:"failed"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Cancelled      bool         `json:"cancelled"`
	Files          []reportFile `json:"files"`
}

// WriteReport writes move_report_<timestamp>.txt and .json and returns the text path.
func (w *FileReportWriter) WriteReport(report *BatchReport) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	base := "move_report_" + report.StartedAt.Format("20060102_150405")
	textPath := filepath.Join(w.dir, base+".txt")
	jsonPath := filepath.Join(w.dir, base+".json")

	if err := os.WriteFile(textPath, []byte(RenderReport(report)), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	doc := reportJSON{
		ID:             report.ID,
		StartedAt:      report.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		Total:          report.Total,
		Completed:      report.Completed,
		Failed:         report.Failed,
		ElapsedSeconds: report.ElapsedSeconds(),
		Cancelled:      report.Cancelled,
	}
	for _, r := range report.Results {
		doc.Files = append(doc.Files, reportFile{Path: r.Path, Outcome: Describe(r.Outcome)})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing report sidecar: %w", err)
	}

	return textPath, nil
}

// RenderReport formats a batch as a human-readable summary.
func RenderReport(report *BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move report %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Batch: %s\n", report.ID)
	fmt.Fprintf(&b, "Files: %d  Moved: %d  Not moved: %d  Elapsed: %.1fs\n",
		report.Total, report.Completed, report.Failed, report.ElapsedSeconds())
	if report.Cancelled {
		b.WriteString("Batch was cancelled before all files started.\n")
	}

	byCategory := make(map[string][]Moved)
	names := make(map[string][]string)
	var others []FileResult
	for _, r := range report.Results {
		if m, ok := r.Outcome.(Moved); ok {
			byCategory[m.Category] = append(byCategory[m.Category], m)
			names[m.Category] = append(names[m.Category], filepath.Base(r.Path))
			continue
		}
		others = append(others, r)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		fmt.Fprintf(&b, "\n%s (%d)\n", c, len(byCategory[c]))
		for i, m := range byCategory[c] {
			fmt.Fprintf(&b, "  %s  %.0f%%  -> %s\n", names[c][i], m.Confidence*100, m.Destination)
		}
	}

	if len(others) > 0 {
		b.WriteString("\nNot moved\n")
		for _, r := range others {
			v := Describe(r.Outcome)
			detail := string(v.Reason)
			if v.Error != "" {
				detail = v.Error
			}
			fmt.Fprintf(&b, "  %s  %s  %s\n", filepath.Base(r.Path), v.Status, detail)
		}
	}
	return b.String()
}
