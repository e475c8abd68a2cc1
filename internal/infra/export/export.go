// Package export renders a quiz and result dump as JSON or as an Excel workbook.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/scoring"
)

const (
	QuizzesSheet = "Quizzes"
	ResultsSheet = "Results"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	quizHeaders   = []string{"Quiz ID", "Title", "Description", "Questions", "Possible Points", "Repassable", "Created At"}
	resultHeaders = []string{"Result ID", "User ID", "Quiz ID", "Quiz Title", "Score", "Earned", "Possible", "Completed At"}
)

// WriteJSON writes the dump as indented JSON.
func WriteJSON(w io.Writer, dump domain.Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

// Workbook renders the dump as an xlsx file with one sheet for quizzes and one
// for results. Earned points are recomputed from each stored answer log.
func Workbook(dump domain.Export) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(QuizzesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(ResultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	byID := make(map[int64]domain.Quiz, len(dump.Quizzes))
	quizRows := make([][]interface{}, 0, len(dump.Quizzes))
	for _, q := range dump.Quizzes {
		byID[q.ID] = q
		quizRows = append(quizRows, []interface{}{
			q.ID,
			q.Title,
			q.Description,
			len(q.Questions),
			scoring.PossibleTotal(q.Questions),
			q.IsRepassable,
			q.CreatedAt.Format(timeLayout),
		})
	}
	if err := writeSheet(f, QuizzesSheet, quizHeaders, quizRows); err != nil {
		return nil, err
	}

	resultRows := make([][]interface{}, 0, len(dump.Results))
	for _, r := range dump.Results {
		row := []interface{}{r.ID, r.UserID, r.QuizID}
		quiz, ok := byID[r.QuizID]
		if !ok {
			row = append(row, "", r.Score, "", "")
		} else if tally, err := recompute(quiz, r); err != nil {
			row = append(row, quiz.Title, r.Score, "", "")
		} else {
			row = append(row, quiz.Title, r.Score, tally.Earned, tally.Possible)
		}
		row = append(row, r.CompletedAt.Format(timeLayout))
		resultRows = append(resultRows, row)
	}
	if err := writeSheet(f, ResultsSheet, resultHeaders, resultRows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func recompute(quiz domain.Quiz, r domain.Result) (scoring.Tally, error) {
	answers, err := domain.DecodeAnswers(quiz.Questions, r.Answers)
	if err != nil {
		return scoring.Tally{}, err
	}
	tally, _ := scoring.Reduce(quiz.Questions, answers)
	return tally, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
