// Package importer loads question banks from spreadsheets.
//
// Each row holds: category, type, context, answer, options, correct,
// max_score. Options are separated by "|" and correct lists 1-based option
// positions separated by ",". A first row whose leading cell is "category"
// is treated as a header. Rows that fail to parse or validate are reported
// in the Result and do not stop the import.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/xuri/excelize/v2"
)

// Author creates catalog content. *goQuiz.Engine satisfies it.
type Author interface {
	CreateCategory(ctx context.Context, name, description string) (*quiz.Category, error)
	CreateQuiz(ctx context.Context, in goQuiz.CreateQuizInput) (*quiz.Quiz, error)
}

// CategoryFinder resolves existing categories. It must return
// goQuiz.ErrCategoryNotFound for unknown names.
type CategoryFinder interface {
	FindCategoryByName(ctx context.Context, name string) (*quiz.Category, error)
}

// RowError describes one rejected row. Row is 1-based.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Result summarizes an import.
type Result struct {
	Rows              int
	Imported          int
	CategoriesCreated int
	Errors            []RowError
}

// Importer writes parsed rows through an Author.
type Importer struct {
	author     Author
	finder     CategoryFinder
	categories map[string]string
}

// New returns an Importer.
func New(author Author, finder CategoryFinder) *Importer {
	return &Importer{
		author:     author,
		finder:     finder,
		categories: make(map[string]string),
	}
}

// ImportFile picks the reader by extension: .csv, otherwise xlsx. An empty
// sheet means the first sheet of the workbook.
func (im *Importer) ImportFile(ctx context.Context, path, sheet string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return im.ImportCSV(ctx, f)
	}
	return im.ImportXLSX(ctx, f, sheet)
}

// ImportCSV imports comma separated rows.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return im.importRows(ctx, rows)
}

// ImportXLSX imports the rows of one workbook sheet.
func (im *Importer) ImportXLSX(ctx context.Context, r io.Reader, sheet string) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return im.importRows(ctx, rows)
}

func (im *Importer) importRows(ctx context.Context, rows [][]string) (*Result, error) {
	res := &Result{}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i == 0 && isHeader(row) {
			continue
		}
		if isBlank(row) {
			continue
		}

		res.Rows++
		created, err := im.importRow(ctx, row)
		if created {
			res.CategoriesCreated++
		}
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Err: err})
			continue
		}
		res.Imported++
	}
	return res, nil
}

func (im *Importer) importRow(ctx context.Context, row []string) (bool, error) {
	rec, err := parseRow(row)
	if err != nil {
		return false, err
	}

	categoryID, created, err := im.category(ctx, rec.category)
	if err != nil {
		return false, err
	}
	rec.input.CategoryID = categoryID

	if _, err := im.author.CreateQuiz(ctx, rec.input); err != nil {
		return created, err
	}
	return created, nil
}

func (im *Importer) category(ctx context.Context, name string) (string, bool, error) {
	key := strings.ToLower(name)
	if id, ok := im.categories[key]; ok {
		return id, false, nil
	}

	c, err := im.finder.FindCategoryByName(ctx, name)
	switch {
	case err == nil:
		im.categories[key] = c.ID
		return c.ID, false, nil
	case !errors.Is(err, goQuiz.ErrCategoryNotFound):
		return "", false, err
	}

	c, err = im.author.CreateCategory(ctx, name, "")
	if err != nil {
		return "", false, err
	}
	im.categories[key] = c.ID
	return c.ID, true, nil
}

type record struct {
	category string
	input    goQuiz.CreateQuizInput
}

const (
	colCategory = iota
	colType
	colContext
	colAnswer
	colOptions
	colCorrect
	colMaxScore
)

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string) (record, error) {
	rec := record{category: cell(row, colCategory)}
	if rec.category == "" {
		return rec, errors.New("category is empty")
	}

	rec.input.Type = quiz.Type(strings.ToLower(cell(row, colType)))
	rec.input.Context = cell(row, colContext)

	if raw := cell(row, colMaxScore); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return rec, fmt.Errorf("max_score %q is not a non-negative integer", raw)
		}
		rec.input.MaxScore = n
	}

	switch rec.input.Type {
	case quiz.TypeSubjective:
		rec.input.Answer = cell(row, colAnswer)
	case quiz.TypeMultiple:
		options, err := parseOptions(cell(row, colOptions), cell(row, colCorrect))
		if err != nil {
			return rec, err
		}
		rec.input.Options = options
	default:
		return rec, fmt.Errorf("unknown type %q", cell(row, colType))
	}
	return rec, nil
}

func parseOptions(options, correct string) ([]goQuiz.OptionInput, error) {
	if options == "" {
		return nil, errors.New("options are empty")
	}
	texts := strings.Split(options, "|")
	out := make([]goQuiz.OptionInput, len(texts))
	for i, t := range texts {
		out[i] = goQuiz.OptionInput{Text: strings.TrimSpace(t)}
	}

	if correct == "" {
		return nil, errors.New("correct is empty")
	}
	for _, raw := range strings.Split(correct, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 || n > len(out) {
			return nil, fmt.Errorf("correct option %q out of range 1..%d", raw, len(out))
		}
		out[n-1].IsCorrect = true
	}
	return out, nil
}

func isHeader(row []string) bool {
	return strings.EqualFold(cell(row, colCategory), "category")
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
