package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "goqca/internal/errors"
	"goqca/ports"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadCasesCSV(t *testing.T) {
	path := writeCSV(t, "case_id,A,B,Y\nc1,1,0,1\nc2,0.7,high,0\n\nc3,,1,1\n")

	cases, err := NewDataReader(path, nil).ReadCases(context.Background(), ports.CaseLayout{OutcomeColumn: "Y"})
	require.NoError(t, err)
	require.Len(t, cases, 3)

	assert.Equal(t, "c1", cases[0].ID)
	f, ok := cases[1].Values["A"].Float()
	assert.True(t, ok)
	assert.Equal(t, 0.7, f)
	assert.True(t, cases[1].Values["B"].IsCategory())
	assert.True(t, cases[2].Values["A"].IsMissing())
	assert.Len(t, cases[0].Values, 2)
}

func TestReadCasesSelectsConditions(t *testing.T) {
	path := writeCSV(t, "name,A,B,C,Y\nx,1,0,1,1\ny,0,0,1,0\n")

	cases, err := NewDataReader(path, nil).ReadCases(context.Background(), ports.CaseLayout{
		OutcomeColumn: "Y",
		Conditions:    []string{"A", "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "x", cases[0].ID)
	assert.Contains(t, cases[0].Values, "C")
	assert.NotContains(t, cases[0].Values, "B")
}

func TestReadCasesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"case", "A", "B", "Y"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"k1", 1, 0, 1}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"k2", 0, 1, 0}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cases, err := NewDataReader(path, nil).ReadCases(context.Background(), ports.CaseLayout{OutcomeColumn: "Y"})
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "k2", cases[1].ID)
	v, ok := cases[1].Values["B"].Float()
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestReadCasesErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewDataReader(filepath.Join(t.TempDir(), "missing.csv"), nil).ReadCases(ctx, ports.CaseLayout{OutcomeColumn: "Y"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	tests := []struct {
		name   string
		body   string
		layout ports.CaseLayout
	}{
		{"header only", "id,A,Y\n", ports.CaseLayout{OutcomeColumn: "Y"}},
		{"no outcome", "id,A,Y\n1,1,1\n", ports.CaseLayout{}},
		{"unknown outcome", "id,A,Y\n1,1,1\n", ports.CaseLayout{OutcomeColumn: "Z"}},
		{"unknown condition", "id,A,Y\n1,1,1\n", ports.CaseLayout{OutcomeColumn: "Y", Conditions: []string{"B"}}},
		{"duplicate id", "id,A,Y\n1,1,1\n1,0,0\n", ports.CaseLayout{OutcomeColumn: "Y", IDColumn: "id"}},
		{"duplicate header", "id,A,A,Y\n1,1,1,1\n", ports.CaseLayout{OutcomeColumn: "Y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataReader(writeCSV(t, tt.body), nil).ReadCases(ctx, tt.layout)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
			assert.Equal(t, 2, apperrors.ExitCode(err))
		})
	}
}

func TestDetectCaseColumn(t *testing.T) {
	data := &SheetData{
		Headers: []string{"A", "Case_ID", "Y"},
		Rows: []RawRowData{
			{"A": "1", "Case_ID": "x", "Y": "1"},
			{"A": "1", "Case_ID": "y", "Y": "0"},
		},
	}
	col, err := DetectCaseColumn(data)
	require.NoError(t, err)
	assert.Equal(t, "Case_ID", col)

	data.Headers = []string{"A", "Y"}
	_, err = DetectCaseColumn(data)
	assert.Error(t, err)
}

func TestToCasesNormalizesIDs(t *testing.T) {
	data := &SheetData{
		Headers: []string{"id", "A", "Y"},
		Rows: []RawRowData{
			{"id": " x ", "A": "1", "Y": "1"},
			{"id": "   ", "A": "0", "Y": "0"},
			{"id": "x", "A": "0", "Y": "1"},
		},
	}

	_, err := ToCases(data, ports.CaseLayout{OutcomeColumn: "Y", IDColumn: "id"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))

	data.Rows = data.Rows[:2]
	cases, err := ToCases(data, ports.CaseLayout{OutcomeColumn: "Y", IDColumn: "id"})
	require.NoError(t, err)
	assert.Equal(t, "x", cases[0].ID)
	assert.Equal(t, "row2", cases[1].ID)
}
