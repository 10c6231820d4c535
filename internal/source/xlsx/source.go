// Package xlsx reads the question bank from an Excel workbook.
//
// Expected layout: a header row naming the columns category, question,
// options, answer and (optionally) image, followed by one row per question.
// Options are joined with ";" in a single cell.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kamass93/quiz-bot/internal/domain"
)

const optionsDelimiter = ";"

// Source reads the workbook fresh on every call. There is deliberately no
// caching here; wrap it with one of the infra decorators when re-reading the
// file per navigation step becomes too expensive.
type Source struct {
	path  string
	sheet string
}

func New(path string) *Source {
	return &Source{path: path}
}

// NewSheet reads from a named sheet instead of the first one.
func NewSheet(path, sheet string) *Source {
	return &Source{path: path, sheet: sheet}
}

func (s *Source) Categories(ctx context.Context) ([]string, error) {
	questions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, q := range questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}
	return categories, nil
}

func (s *Source) QuestionsFor(ctx context.Context, category string) ([]domain.Question, error) {
	questions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []domain.Question
	for _, q := range questions {
		if q.Category == category {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

func (s *Source) load(_ context.Context) ([]domain.Question, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open question bank %s: %w: %w", s.path, domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w: %w", sheet, domain.ErrSourceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("question bank %s is empty: %w", s.path, domain.ErrSourceUnavailable)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w: %w", s.path, domain.ErrSourceUnavailable, err)
	}

	var questions []domain.Question
	for _, row := range rows[1:] {
		q := domain.Question{
			Category: cell(row, cols.category),
			Text:     cell(row, cols.question),
			Answer:   cell(row, cols.answer),
			ImageRef: cell(row, cols.image),
		}
		// Rows without a category are padding or notes.
		if q.Category == "" {
			continue
		}
		if opts := cell(row, cols.options); opts != "" {
			q.Options = strings.Split(opts, optionsDelimiter)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

type columns struct {
	category int
	question int
	options  int
	answer   int
	image    int
}

func headerIndex(header []string) (columns, error) {
	cols := columns{category: -1, question: -1, options: -1, answer: -1, image: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "category":
			cols.category = i
		case "question":
			cols.question = i
		case "options":
			cols.options = i
		case "answer":
			cols.answer = i
		case "image":
			cols.image = i
		}
	}
	if cols.category < 0 || cols.question < 0 || cols.answer < 0 {
		return cols, fmt.Errorf("header must name category, question and answer columns")
	}
	return cols, nil
}

// cell tolerates the short rows excelize produces when trailing cells are empty.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
