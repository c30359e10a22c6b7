// Package report exports a learner's course progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const (
	progressSheet = "Progress"
	attemptsSheet = "Quiz attempts"
)

var (
	progressHeader = []any{"Module", "Lesson", "Type", "Status", "Completion %", "Last accessed"}
	attemptsHeader = []any{"Quiz", "Lesson", "Attempt", "Score", "Max score", "Percentage", "Passed", "Submitted at"}
)

// WriteCourseProgress writes an xlsx workbook with one row per lesson, a
// course summary row, and the learner's quiz attempts.
func WriteCourseProgress(w io.Writer, snap *progress.Snapshot, attempts []quiz.Attempt) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeProgress(f, snap, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(attemptsSheet); err != nil {
		return fmt.Errorf("creating attempts sheet: %w", err)
	}
	if err := writeAttempts(f, attempts, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, snap *progress.Snapshot, headerStyle int) error {
	byLesson := make(map[string]progress.Record, len(snap.Records))
	for _, r := range snap.Records {
		byLesson[r.LessonID] = r
	}

	rows := [][]any{progressHeader}
	for _, m := range snap.Modules {
		for _, l := range m.Lessons {
			status := string(progress.StatusNotStarted)
			pct := 0
			lastAccessed := ""
			if r, ok := byLesson[l.ID]; ok {
				status = string(r.Status)
				pct = r.CompletionPercentage
				lastAccessed = r.LastAccessedAt.UTC().Format(time.RFC3339)
			}
			rows = append(rows, []any{title(m.Title, m.ID), title(l.Title, l.ID), string(l.LessonType), status, pct, lastAccessed})
		}
	}
	rows = append(rows,
		[]any{},
		[]any{"Course", snap.CourseID, "", fmt.Sprintf("%d/%d lessons", snap.Completion.CompletedLessons, snap.Completion.TotalLessons), snap.Completion.Percentage},
	)

	if err := setRows(f, progressSheet, rows); err != nil {
		return err
	}
	return styleHeader(f, progressSheet, len(progressHeader), headerStyle)
}

func writeAttempts(f *excelize.File, attempts []quiz.Attempt, headerStyle int) error {
	rows := [][]any{attemptsHeader}
	for _, a := range attempts {
		rows = append(rows, []any{
			a.QuizID, a.LessonID, a.AttemptNumber, a.Score, a.MaxScore, a.Percentage, a.IsPassed,
			a.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := setRows(f, attemptsSheet, rows); err != nil {
		return err
	}
	return styleHeader(f, attemptsSheet, len(attemptsHeader), headerStyle)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(cols)
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func title(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
