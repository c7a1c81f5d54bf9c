package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"goqca/adapters/excel"
	"goqca/adapters/records"
	"goqca/app"
	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	"goqca/internal/calibration"
	"goqca/internal/config"
	"goqca/internal/errors"
	"goqca/internal/truthtable"
	"goqca/ports"
)

// Definition is an analysis file: where the cases live, how each column is
// calibrated and which thresholds apply.
type Definition struct {
	Name       string          `yaml:"name"`
	Data       DataSource      `yaml:"data"`
	Outcome    ConditionDef    `yaml:"outcome"`
	Conditions []ConditionDef  `yaml:"conditions"`
	Analysis   AnalysisOptions `yaml:"analysis"`

	// Expectations maps condition names to present, absent or a level
	Expectations map[string]string `yaml:"expectations"`

	dir string
}

// DataSource locates the case set
type DataSource struct {
	Path     string `yaml:"path"`
	Sheet    string `yaml:"sheet"`
	DataPath string `yaml:"data_path"`
	IDColumn string `yaml:"id_column"`
}

// ConditionDef is one calibrated column
type ConditionDef struct {
	Name   string                 `yaml:"name"`
	Domain string                 `yaml:"domain"`
	Levels int                    `yaml:"levels"`
	Method string                 `yaml:"method"`
	Params map[string]interface{} `yaml:"params"`
}

// AnalysisOptions override the configured analysis defaults
type AnalysisOptions struct {
	InclusionThreshold *float64 `yaml:"inclusion_threshold"`
	PRIThreshold       *float64 `yaml:"pri_threshold"`
	IncludeRemainders  *bool    `yaml:"include_remainders"`
	Contradictions     *string  `yaml:"contradictions"`
}

// LoadDefinition reads an analysis file. Unknown keys are rejected.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("analysis file " + path)
		}
		return nil, errors.Wrap(err, "failed to read analysis file")
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	def.dir = filepath.Dir(path)
	return def, nil
}

// ParseDefinition decodes an analysis file body
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &errors.AppError{Code: errors.CodeInvalidInput, Message: "invalid analysis file", Cause: err}
	}
	if def.Outcome.Name == "" {
		return nil, errors.InvalidInput("analysis file must name an outcome")
	}
	if len(def.Conditions) == 0 {
		return nil, errors.InvalidInput("analysis file must list conditions")
	}
	return &def, nil
}

// Request turns the definition into an analysis request over the configured
// defaults. Cases are not loaded.
func (d *Definition) Request(defaults config.AnalysisConfig) (app.AnalysisRequest, error) {
	req := app.NewRequest(defaults)
	req.Name = d.Name

	o := d.Analysis
	if o.InclusionThreshold != nil {
		req.Options.InclusionThreshold = *o.InclusionThreshold
	}
	if o.PRIThreshold != nil {
		req.Options.PRIThreshold = *o.PRIThreshold
	}
	if o.IncludeRemainders != nil {
		req.Options.IncludeRemainders = *o.IncludeRemainders
	}
	if o.Contradictions != nil {
		req.Contradictions = truthtable.ContradictionMethod(*o.Contradictions)
	}

	outcome, err := d.Outcome.condition()
	if err != nil {
		return req, errors.Wrap(err, "outcome")
	}
	req.Outcome = outcome

	for _, def := range d.Conditions {
		cond, err := def.condition()
		if err != nil {
			return req, errors.Wrapf(err, "condition %s", def.Name)
		}
		req.Conditions = append(req.Conditions, cond)
	}

	infos := qca.Infos(req.Conditions)
	exp, err := qca.ParseExpectations(d.Expectations, infos)
	if err != nil {
		return req, errors.Wrap(core.NewInvalidCalibrationSpecError("expectations", err.Error()), "invalid expectations")
	}
	req.Options.Expectations = exp
	return req, nil
}

func (c ConditionDef) condition() (qca.Condition, error) {
	if c.Name == "" {
		return qca.Condition{}, errors.InvalidInput("condition without a name")
	}
	method := c.Method
	if method == "" {
		method = string(qca.MethodAuto)
	}
	spec, err := calibration.DecodeSpec(method, c.Params)
	if err != nil {
		return qca.Condition{}, err
	}
	domain := qca.DomainKind(strings.ToLower(c.Domain))
	if domain == "" {
		domain = qca.DomainFuzzy
	}
	return qca.Condition{Name: c.Name, Domain: domain, Levels: c.Levels, Calibration: spec}, nil
}

// Layout is the column layout the case source reads
func (d *Definition) Layout() ports.CaseLayout {
	layout := ports.CaseLayout{IDColumn: d.Data.IDColumn, OutcomeColumn: d.Outcome.Name}
	for _, c := range d.Conditions {
		layout.Conditions = append(layout.Conditions, c.Name)
	}
	return layout
}

// Source opens the case source named by the data section. Relative paths
// resolve against the analysis file's directory.
func (d *Definition) Source(logger *internal.Logger) (ports.CaseSource, error) {
	path := d.Data.Path
	if path == "" {
		return nil, errors.InvalidInput("analysis file has no data.path")
	}
	if !filepath.IsAbs(path) && d.dir != "" {
		path = filepath.Join(d.dir, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		reader, err := records.NewFileReader(path, d.Data.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case ".csv", ".xlsx", ".xlsm":
		return excel.NewDataReader(path, logger).WithSheet(d.Data.Sheet), nil
	}
	return nil, errors.InvalidInput("unsupported data file " + path)
}
