// Package excel reads case sets from spreadsheet (xlsx) and CSV files.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	apperrors "goqca/internal/errors"
	"goqca/ports"
)

// RawRowData is one data row keyed by header
type RawRowData map[string]string

// SheetData is a parsed sheet: trimmed headers plus data rows
type SheetData struct {
	Headers []string
	Rows    []RawRowData
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

var _ ports.CaseSource = (*DataReader)(nil)

// NewDataReader creates a reader for filePath. The file type follows the
// extension; anything other than .csv is opened as a workbook.
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger}
}

// WithSheet selects a worksheet by name. The first sheet is used otherwise.
func (r *DataReader) WithSheet(name string) *DataReader {
	r.sheet = name
	return r
}

// ReadData reads the file into headers and string rows
func (r *DataReader) ReadData() (*SheetData, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, apperrors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData()
	}
}

func (r *DataReader) readExcelData() (*SheetData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "failed to open workbook", Cause: err}
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.InvalidInput("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "failed to read sheet " + sheet, Cause: err}
	}
	r.logger.Debug("[DataReader] sheet %s read in %.2fms (%d rows)",
		sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, apperrors.InvalidInput("sheet must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "malformed CSV", Cause: err}
	}
	r.logger.Debug("[DataReader] CSV file read in %.2fms (%d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, apperrors.InvalidInput("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into SheetData. Short rows leave
// their trailing columns empty.
func (r *DataReader) processRows(rows [][]string) (*SheetData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
		if headers[i] == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("empty header in column %d", i+1))
		}
		if seen[headers[i]] {
			return nil, apperrors.InvalidInput(fmt.Sprintf("duplicate header %q", headers[i]))
		}
		seen[headers[i]] = true
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		blank := true
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
				if rowData[headers[j]] != "" {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Info("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &SheetData{Headers: headers, Rows: dataRows}, nil
}

// DetectCaseColumn picks the column that identifies cases: a column with a
// conventional identifier name, else the first column, provided it is
// mostly filled and mostly unique.
func DetectCaseColumn(data *SheetData) (string, error) {
	if len(data.Rows) == 0 {
		return "", apperrors.InvalidInput("no data rows found")
	}

	commonCaseColumns := []string{
		"case_id",
		"case",
		"id",
		"name",
		"country",
		"unit",
		"key",
	}

	for _, colName := range commonCaseColumns {
		for _, header := range data.Headers {
			if strings.ToLower(header) == colName && isValidCaseColumn(data, header) {
				return header, nil
			}
		}
	}

	if len(data.Headers) > 0 && isValidCaseColumn(data, data.Headers[0]) {
		return data.Headers[0], nil
	}

	return "", apperrors.InvalidInput("could not detect a case identifier column")
}

func isValidCaseColumn(data *SheetData, columnName string) bool {
	values := make(map[string]bool)
	emptyCount := 0

	for _, row := range data.Rows {
		if value := row[columnName]; value == "" {
			emptyCount++
		} else {
			values[value] = true
		}
	}

	totalRows := len(data.Rows)
	emptyRatio := float64(emptyCount) / float64(totalRows)
	uniqueRatio := float64(len(values)) / float64(totalRows)

	return emptyRatio < 0.5 && uniqueRatio > 0.5
}

// ToCases projects sheet rows onto the layout. Rows with an empty
// identifier get a positional one; duplicate identifiers are rejected.
func ToCases(data *SheetData, layout ports.CaseLayout) ([]qca.Case, error) {
	present := make(map[string]bool, len(data.Headers))
	for _, h := range data.Headers {
		present[h] = true
	}

	if layout.OutcomeColumn == "" {
		return nil, apperrors.InvalidInput("outcome column is required")
	}
	if !present[layout.OutcomeColumn] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("outcome column %q not found", layout.OutcomeColumn))
	}

	idColumn := layout.IDColumn
	if idColumn == "" {
		detected, err := DetectCaseColumn(data)
		if err != nil {
			return nil, err
		}
		idColumn = detected
	} else if !present[idColumn] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("case column %q not found", idColumn))
	}

	conditions := layout.Conditions
	if len(conditions) == 0 {
		for _, h := range data.Headers {
			if h != idColumn && h != layout.OutcomeColumn {
				conditions = append(conditions, h)
			}
		}
	}
	for _, name := range conditions {
		if !present[name] {
			return nil, apperrors.InvalidInput(fmt.Sprintf("condition column %q not found", name))
		}
	}

	cases := make([]qca.Case, 0, len(data.Rows))
	ids := make(map[core.CaseID]bool, len(data.Rows))
	for i, row := range data.Rows {
		id, err := core.ParseCaseID(row[idColumn])
		if err != nil {
			id = core.CaseID(fmt.Sprintf("row%d", i+1))
		}
		if ids[id] {
			return nil, apperrors.InvalidInput(fmt.Sprintf("duplicate case id %q", id))
		}
		ids[id] = true

		values := make(map[string]qca.RawValue, len(conditions))
		for _, name := range conditions {
			values[name] = qca.ParseRaw(row[name])
		}
		cases = append(cases, qca.Case{
			ID:      id.String(),
			Values:  values,
			Outcome: qca.ParseRaw(row[layout.OutcomeColumn]),
		})
	}
	return cases, nil
}

// ReadCases implements ports.CaseSource
func (r *DataReader) ReadCases(ctx context.Context, layout ports.CaseLayout) ([]qca.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return ToCases(data, layout)
}
