package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-matcher/internal/matching"
)

const (
	runsSheet    = "Runs"
	matchesSheet = "Matches"
	dateLayout   = "2006-01-02 15:04:05"
)

var (
	runsHeader    = []string{"History ID", "Date (UTC)", "College Code", "Job Description", "Candidates", "Top Candidate", "Top Score"}
	matchesHeader = []string{"History ID", "Rank", "Resume ID", "Name", "Email", "Suggested Role", "Score", "Status", "Highlights"}
)

// WriteHistoryXLSX writes entries to an Excel workbook with one sheet of runs
// and one sheet of ranked matches.
func WriteHistoryXLSX(entries []*matching.HistoryEntry, outputPath string) error {
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return errors.New("output path is required")
	}
	if !strings.EqualFold(filepath.Ext(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", runsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(matchesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, runsSheet, runsHeader, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, matchesSheet, matchesHeader, headerStyle); err != nil {
		return err
	}

	runRow, matchRow := 2, 2
	for _, e := range entries {
		topName, topScore := "", 0.0
		if len(e.Matches) > 0 {
			topName, topScore = e.Matches[0].Name, e.Matches[0].Score
		}
		if err := writeRow(f, runsSheet, runRow, []any{
			e.ID, e.CreatedAt.UTC().Format(dateLayout), e.Namespace, e.JobDescription, len(e.Matches), topName, topScore,
		}); err != nil {
			return err
		}
		runRow++

		for i, m := range e.Matches {
			if err := writeRow(f, matchesSheet, matchRow, []any{
				e.ID, i + 1, m.ResumeID, m.Name, m.Email, m.SuggestedRole, m.Score, string(m.Status), strings.Join(m.Rationale, "; "),
			}); err != nil {
				return err
			}
			matchRow++
		}
	}

	f.SetColWidth(runsSheet, "A", "A", 38)
	f.SetColWidth(runsSheet, "D", "D", 60)
	f.SetColWidth(matchesSheet, "D", "F", 25)
	f.SetColWidth(matchesSheet, "I", "I", 60)
	f.SetActiveSheet(0)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
