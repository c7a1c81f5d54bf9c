// Package records reads case sets from JSON documents. Two shapes are
// accepted: nested records carrying case_id, condition_values and
// outcome_value, and flat objects with one field per column.
package records

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/gjson"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	apperrors "goqca/internal/errors"
	"goqca/ports"
)

// Reader extracts cases from a JSON payload
type Reader struct {
	data     []byte
	dataPath string
	logger   *internal.Logger
}

var _ ports.CaseSource = (*Reader)(nil)

// NewReader creates a reader over data. dataPath is a gjson path to the
// array of records; empty means the document root.
func NewReader(data []byte, dataPath string, logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Reader{data: data, dataPath: dataPath, logger: logger}
}

// NewFileReader loads a JSON file and returns a reader over it
func NewFileReader(path, dataPath string, logger *internal.Logger) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("JSON file " + path)
		}
		return nil, apperrors.Wrap(err, "failed to read JSON file")
	}
	return NewReader(data, dataPath, logger), nil
}

// ReadCases implements ports.CaseSource
func (r *Reader) ReadCases(ctx context.Context, layout ports.CaseLayout) ([]qca.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(r.data) {
		return nil, apperrors.InvalidInput("payload is not valid JSON")
	}

	result := gjson.ParseBytes(r.data)
	if r.dataPath != "" {
		result = gjson.GetBytes(r.data, r.dataPath)
		if !result.Exists() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("data path '%s' not found in payload", r.dataPath))
		}
	}
	if !result.IsArray() {
		return nil, apperrors.InvalidInput("case records must be a JSON array")
	}

	items := result.Array()
	cases := make([]qca.Case, 0, len(items))
	ids := make(map[core.CaseID]bool, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("record %d is not an object", i))
		}
		var c qca.Case
		var err error
		if item.Get("condition_values").IsObject() {
			c, err = nestedCase(item, layout)
		} else {
			c, err = flatCase(item, layout)
		}
		if err != nil {
			return nil, apperrors.Wrapf(err, "record %d", i)
		}
		id, err := core.ParseCaseID(c.ID)
		if err != nil {
			id = core.CaseID(fmt.Sprintf("row%d", i+1))
		}
		if ids[id] {
			return nil, apperrors.InvalidInput(fmt.Sprintf("duplicate case id %q", id))
		}
		ids[id] = true
		c.ID = id.String()
		cases = append(cases, c)
	}

	r.logger.Info("[RecordsReader] read %d cases", len(cases))
	return cases, nil
}

func nestedCase(item gjson.Result, layout ports.CaseLayout) (qca.Case, error) {
	idField := layout.IDColumn
	if idField == "" {
		idField = "case_id"
	}
	c := qca.Case{
		ID:      item.Get(gjson.Escape(idField)).String(),
		Values:  make(map[string]qca.RawValue),
		Outcome: rawValue(item.Get("outcome_value")),
	}
	values := item.Get("condition_values")
	if len(layout.Conditions) > 0 {
		for _, name := range layout.Conditions {
			v := values.Get(gjson.Escape(name))
			if !v.Exists() {
				return c, apperrors.InvalidInput(fmt.Sprintf("condition %q not found", name))
			}
			c.Values[name] = rawValue(v)
		}
		return c, nil
	}
	values.ForEach(func(key, value gjson.Result) bool {
		c.Values[key.String()] = rawValue(value)
		return true
	})
	return c, nil
}

func flatCase(item gjson.Result, layout ports.CaseLayout) (qca.Case, error) {
	if layout.OutcomeColumn == "" {
		return qca.Case{}, apperrors.InvalidInput("outcome column is required for flat records")
	}
	outcome := item.Get(gjson.Escape(layout.OutcomeColumn))
	if !outcome.Exists() {
		return qca.Case{}, apperrors.InvalidInput(fmt.Sprintf("outcome field %q not found", layout.OutcomeColumn))
	}
	idField := layout.IDColumn
	if idField == "" {
		idField = "case_id"
		if !item.Get(idField).Exists() {
			idField = "id"
		}
	}
	c := qca.Case{
		ID:      item.Get(gjson.Escape(idField)).String(),
		Values:  make(map[string]qca.RawValue),
		Outcome: rawValue(outcome),
	}

	names := layout.Conditions
	if len(names) == 0 {
		item.ForEach(func(key, _ gjson.Result) bool {
			if k := key.String(); k != idField && k != layout.OutcomeColumn {
				names = append(names, k)
			}
			return true
		})
		sort.Strings(names)
	}
	for _, name := range names {
		v := item.Get(gjson.Escape(name))
		if !v.Exists() {
			return c, apperrors.InvalidInput(fmt.Sprintf("condition %q not found", name))
		}
		c.Values[name] = rawValue(v)
	}
	return c, nil
}

func rawValue(v gjson.Result) qca.RawValue {
	switch v.Type {
	case gjson.Number:
		return qca.Number(v.Float())
	case gjson.String:
		return qca.ParseRaw(v.String())
	case gjson.True:
		return qca.Number(1)
	case gjson.False:
		return qca.Number(0)
	}
	return qca.Missing()
}
