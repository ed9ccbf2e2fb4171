package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"grocery-ordering-system/internal/core/domain"
)

const (
	DefaultNameColumn  = "Item Name"
	DefaultPriceColumn = "Price"
)

// Columns names the header cells that hold the item name and unit price.
type Columns struct {
	Name  string
	Price string
}

// LoadResult describes what a load produced, for the startup log line.
type LoadResult struct {
	Items   []domain.CatalogItem
	Columns []string
	Skipped int
}

// Load reads a catalog from an .xlsx (first sheet) or .csv file. The first
// row must be a header.
func Load(path string, cols Columns) (*LoadResult, error) {
	if cols.Name == "" {
		cols.Name = DefaultNameColumn
	}
	if cols.Price == "" {
		cols.Price = DefaultPriceColumn
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows, cols)
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func parseRows(rows [][]string, cols Columns) (*LoadResult, error) {
	if len(rows) == 0 {
		return nil, errors.New("catalog has no header row")
	}
	header := make([]string, len(rows[0]))
	nameIdx, priceIdx := -1, -1
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(header[i], cols.Name):
			nameIdx = i
		case strings.EqualFold(header[i], cols.Price):
			priceIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("catalog has no %q column", cols.Name)
	}
	if priceIdx < 0 {
		return nil, fmt.Errorf("catalog has no %q column", cols.Price)
	}

	res := &LoadResult{Columns: header}
	for _, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, nameIdx))
		if name == "" {
			res.Skipped++
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(cell(row, priceIdx)))
		if err != nil || price.IsNegative() || !domain.WithinBounds(price, domain.MaxUnitPrice) {
			res.Skipped++
			continue
		}
		attrs := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			attrs[h] = cell(row, i)
		}
		res.Items = append(res.Items, domain.CatalogItem{
			Name:       name,
			UnitPrice:  price,
			Attributes: attrs,
		})
	}
	return res, nil
}

// cell tolerates short rows; spreadsheets drop trailing empty cells.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
