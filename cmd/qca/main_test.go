package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goqca/domain/qca"
	"goqca/internal/config"
	"goqca/internal/errors"
	"goqca/internal/truthtable"
)

const analysisYAML = `
name: ab-or-c
data:
  path: cases.csv
  id_column: case_id
outcome:
  name: Y
  domain: crisp
  method: threshold
  params:
    anchors: [0.5]
conditions:
  - name: A
    domain: crisp
    method: threshold
    params: {anchors: [0.5]}
  - name: B
    domain: crisp
    method: threshold
    params: {anchors: [0.5]}
  - name: C
    domain: crisp
    method: threshold
    params: {anchors: [0.5]}
analysis:
  inclusion_threshold: 0.9
  contradictions: split
expectations:
  A: present
`

// writeAnalysis lays out an analysis file next to a CSV with Y = A*B + C
func writeAnalysis(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var csv strings.Builder
	csv.WriteString("case_id,A,B,C,Y\n")
	for n := 0; n < 8; n++ {
		a, b, c := n>>2&1, n>>1&1, n&1
		y := 0
		if (a == 1 && b == 1) || c == 1 {
			y = 1
		}
		fmt.Fprintf(&csv, "case%d,%d,%d,%d,%d\n", n, a, b, c, y)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cases.csv"), []byte(csv.String()), 0o644))

	path := filepath.Join(dir, "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(analysisYAML), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := cmd.Execute()
	return out.String(), err
}

func TestDefinitionRequest(t *testing.T) {
	def, err := ParseDefinition([]byte(analysisYAML))
	require.NoError(t, err)

	req, err := def.Request(config.AnalysisConfig{InclusionThreshold: 0.8, PRIThreshold: 0.51, IncludeRemainders: true})
	require.NoError(t, err)
	assert.Equal(t, "ab-or-c", req.Name)
	assert.Equal(t, 0.9, req.Options.InclusionThreshold)
	assert.Equal(t, 0.51, req.Options.PRIThreshold)
	assert.Equal(t, truthtable.ContradictionSplit, req.Contradictions)
	assert.Equal(t, qca.Expectations{"A": 1}, req.Options.Expectations)
	require.Len(t, req.Conditions, 3)
	assert.Equal(t, qca.MethodThreshold, req.Conditions[0].Calibration.Method)
	assert.Equal(t, []float64{0.5}, req.Conditions[0].Calibration.Anchors)

	layout := def.Layout()
	assert.Equal(t, "Y", layout.OutcomeColumn)
	assert.Equal(t, []string{"A", "B", "C"}, layout.Conditions)
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown key", "name: x\nbogus: 1\n", errors.CodeInvalidInput},
		{"no outcome", "conditions: [{name: A}]\n", errors.CodeInvalidInput},
		{"no conditions", "outcome: {name: Y}\n", errors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.body))
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}

	def, err := ParseDefinition([]byte("outcome: {name: Y}\nconditions: [{name: A, method: wavelet}]\n"))
	require.NoError(t, err)
	_, err = def.Request(config.AnalysisConfig{InclusionThreshold: 0.8})
	assert.Equal(t, errors.CodeInvalidCalibrationSpec, errors.GetCode(err))

	def, err = ParseDefinition([]byte("outcome: {name: Y}\nconditions: [{name: A}]\nexpectations: {Z: present}\n"))
	require.NoError(t, err)
	_, err = def.Request(config.AnalysisConfig{InclusionThreshold: 0.8})
	assert.Equal(t, errors.CodeInvalidCalibrationSpec, errors.GetCode(err))

	_, err = LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := execute(t, "analyze", "-f", writeAnalysis(t))
	require.NoError(t, err)

	var res struct {
		Solutions []qca.Solution `json:"solutions"`
		Quality   qca.Quality    `json:"quality"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Solutions, 3)
	assert.Equal(t, "A*B + C", res.Solutions[0].Expression)
	assert.Equal(t, 8, res.Quality.ObservedRows)
}

func TestTruthTableThenMinimize(t *testing.T) {
	path := writeAnalysis(t)
	out, err := execute(t, "truth-table", "-f", path)
	require.NoError(t, err)

	table := filepath.Join(filepath.Dir(path), "table.json")
	require.NoError(t, os.WriteFile(table, []byte(out), 0o644))

	out, err = execute(t, "minimize", "--table", table, "--no-remainders")
	require.NoError(t, err)

	var solutions []qca.Solution
	require.NoError(t, json.Unmarshal([]byte(out), &solutions))
	require.Len(t, solutions, 1)
	assert.Equal(t, qca.SolutionComplex, solutions[0].Type)
	assert.Equal(t, "A*B + C", solutions[0].Expression)
}

func TestNecessityCommand(t *testing.T) {
	out, err := execute(t, "necessity", "-f", writeAnalysis(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"literal": "~C"`)
}

func TestCommandErrorsMapToExitCodes(t *testing.T) {
	_, err := execute(t, "analyze", "-f", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, 1, errors.ExitCode(err))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	_, err = execute(t, "analyze", "-f", writeAnalysis(t), "--store")
	assert.Equal(t, 2, errors.ExitCode(err))
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, "config", "show", "--backend", "native")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: native")
	assert.Contains(t, out, "inclusion_threshold: 0.8")
}
