package db

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"provas-server-go/models"
)

const summarySheet = "Avaliações"

// ImportQuestionsFromExcel reads questions from the first sheet of a workbook.
// Columns: A type, B text, C image URL, D onwards the alternatives. Row 1 is a header.
func ImportQuestionsFromExcel(file io.Reader) ([]models.Question, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing excel file")
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	// IDs follow the editor's millisecond timestamps, offset per row to stay unique
	base := time.Now().UnixMilli()
	questions := make([]models.Question, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // Skip header row
		}

		cell := func(n int) string {
			if len(row) > n {
				return strings.TrimSpace(row[n])
			}
			return ""
		}

		qType := models.QuestionType(strings.ToLower(cell(0)))
		text := cell(1)
		if text == "" {
			log.Debug().Int("row", i+1).Msg("skipping row without question text")
			continue
		}

		q := models.NewQuestion(base+int64(i), qType)
		q.Text = text
		q.Image = cell(2)
		if qType == models.QuestionMultipleChoice {
			q.Options = q.Options[:0]
			for n := 3; n < len(row); n++ {
				if opt := cell(n); opt != "" {
					q.Options = append(q.Options, opt)
				}
			}
		}
		if err := q.Validate(); err != nil {
			log.Debug().Err(err).Int("row", i+1).Msg("skipping invalid question row")
			continue
		}
		questions = append(questions, q)
	}

	log.Info().Int("questions", len(questions)).Str("sheet", sheetName).Msg("imported questions from excel")
	return questions, nil
}

// ExportSummariesToExcel writes the dashboard listing as a single-sheet workbook
func ExportSummariesToExcel(w io.Writer, summaries []models.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []any{"ID", "Título", "Turma", "Data"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, s := range summaries {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{s.ID, s.Title, s.ClassName, s.Date}
		if err := f.SetSheetRow(summarySheet, cellRef, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
