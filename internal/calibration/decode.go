package calibration

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// DecodeSpec builds a CalibrationSpec from a method name and a loose params
// map as found in YAML analysis files. Points may be given either as
// {raw, membership} maps or as [raw, membership] pairs.
func DecodeSpec(method string, params map[string]interface{}) (qca.CalibrationSpec, error) {
	m, ok := qca.ParseMethod(method)
	if !ok {
		return qca.CalibrationSpec{}, core.NewInvalidCalibrationSpecError("method", fmt.Sprintf("unknown method %q", method))
	}

	var spec qca.CalibrationSpec
	if len(params) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &spec,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			DecodeHook:       pairToAnchorPoint,
		})
		if err != nil {
			return qca.CalibrationSpec{}, err
		}
		if err := dec.Decode(params); err != nil {
			return qca.CalibrationSpec{}, core.NewInvalidCalibrationSpecError("params", err.Error())
		}
	}
	spec.Method = m
	return spec, nil
}

func pairToAnchorPoint(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(qca.AnchorPoint{}) || from.Kind() != reflect.Slice {
		return data, nil
	}
	pair, ok := data.([]interface{})
	if !ok || len(pair) != 2 {
		return data, nil
	}
	return map[string]interface{}{"raw": pair[0], "membership": pair[1]}, nil
}
