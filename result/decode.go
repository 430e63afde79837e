package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mapflow/geoproc"
)

// outputParamNames are the output-parameter names a nested payload may
// be keyed under. Shape resolution searches them in this order, one
// level deep, and no deeper.
var outputParamNames = []string{
	"out",
	"output",
	"result",
	"outputFeatures",
	"outputRaster",
	"outputValue",
}

// Decode turns a raw result payload into an Envelope for the declared
// output kind. Resolution order is fixed: first the shape matching the
// declared kind at the top level, then one level of nesting under known
// output-parameter names, then failure with ErrShapeMismatch. Ambiguity
// is reported, never resolved to a default.
func Decode(declared OutputKind, raw []byte) (*Envelope, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", geoproc.ErrShapeMismatch, err)
	}

	// (1) Exact shape at the top level.
	env, ok, err := decodeShape(declared, obj)
	if err != nil {
		return nil, err
	}
	if ok {
		env.OutputRefs = append(env.OutputRefs, outputIDs(obj)...)
		return env, nil
	}

	// (2) One level of nesting under known output-parameter names.
	for _, name := range outputParamNames {
		inner, present := obj[name]
		if !present || jsonKind(inner) != kindObject {
			continue
		}
		var innerObj map[string]json.RawMessage
		if err := json.Unmarshal(inner, &innerObj); err != nil {
			continue
		}
		env, ok, err := decodeShape(declared, innerObj)
		if err != nil {
			return nil, err
		}
		if ok {
			env.OutputRefs = append(env.OutputRefs, outputIDs(innerObj)...)
			env.OutputRefs = append(env.OutputRefs, outputIDs(obj)...)
			return env, nil
		}
	}

	// (3) Nothing matched. Refuse to guess.
	return nil, fmt.Errorf("%w: no %q shape found at top level or one nesting level", geoproc.ErrShapeMismatch, declared)
}

// decodeShape tries to read obj as the declared kind. The boolean
// reports whether the kind's marker key was present; a present marker
// with a malformed value is an error, not a miss, so that a recognized
// shape is never silently skipped.
func decodeShape(declared OutputKind, obj map[string]json.RawMessage) (*Envelope, bool, error) {
	switch declared {
	case OutputFeatureCollection:
		return decodeFeatures(obj)
	case OutputRaster:
		return decodeRaster(obj)
	case OutputScalar:
		return decodeScalar(obj)
	case OutputNamedMap:
		return decodeNamedMap(obj)
	default:
		return nil, false, fmt.Errorf("%w: undeclared output kind %q", geoproc.ErrShapeMismatch, declared)
	}
}

func decodeFeatures(obj map[string]json.RawMessage) (*Envelope, bool, error) {
	features, present := obj["features"]
	if !present {
		return nil, false, nil
	}
	if jsonKind(features) != kindArray {
		return nil, false, fmt.Errorf("%w: \"features\" is not an array", geoproc.ErrTypeMismatch)
	}

	var fc FeatureCollection
	if err := unmarshalObj(obj, &fc); err != nil {
		return nil, false, fmt.Errorf("%w: feature collection: %v", geoproc.ErrTypeMismatch, err)
	}
	return &Envelope{Kind: OutputFeatureCollection, Features: &fc}, true, nil
}

func decodeRaster(obj map[string]json.RawMessage) (*Envelope, bool, error) {
	rawURL, present := obj["url"]
	if !present {
		return nil, false, nil
	}
	if jsonKind(rawURL) != kindString {
		return nil, false, fmt.Errorf("%w: \"url\" is not a string", geoproc.ErrTypeMismatch)
	}

	var ref RasterRef
	if err := unmarshalObj(obj, &ref); err != nil {
		return nil, false, fmt.Errorf("%w: raster reference: %v", geoproc.ErrTypeMismatch, err)
	}
	env := &Envelope{Kind: OutputRaster, Raster: &ref}
	if ref.URL != "" {
		env.OutputRefs = append(env.OutputRefs, ref.URL)
	}
	return env, true, nil
}

func decodeScalar(obj map[string]json.RawMessage) (*Envelope, bool, error) {
	value, present := obj["value"]
	if !present {
		return nil, false, nil
	}

	s := Scalar{}
	switch jsonKind(value) {
	case kindNumber:
		n, err := strconv.ParseFloat(string(bytes.TrimSpace(value)), 64)
		if err != nil {
			return nil, false, fmt.Errorf("%w: numeric value: %v", geoproc.ErrTypeMismatch, err)
		}
		s.Number = &n
	case kindString:
		var t string
		if err := json.Unmarshal(value, &t); err != nil {
			return nil, false, fmt.Errorf("%w: text value: %v", geoproc.ErrTypeMismatch, err)
		}
		s.Text = &t
	case kindBool:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, false, fmt.Errorf("%w: boolean value: %v", geoproc.ErrTypeMismatch, err)
		}
		s.Bool = &b
	default:
		// Objects, arrays, and null are not scalars. No coercion.
		return nil, false, fmt.Errorf("%w: \"value\" is not a scalar", geoproc.ErrTypeMismatch)
	}
	return &Envelope{Kind: OutputScalar, Scalar: &s}, true, nil
}

func decodeNamedMap(obj map[string]json.RawMessage) (*Envelope, bool, error) {
	outputs, present := obj["outputs"]
	if !present {
		return nil, false, nil
	}
	if jsonKind(outputs) != kindObject {
		return nil, false, fmt.Errorf("%w: \"outputs\" is not an object", geoproc.ErrTypeMismatch)
	}

	var named map[string]json.RawMessage
	if err := json.Unmarshal(outputs, &named); err != nil {
		return nil, false, fmt.Errorf("%w: named outputs: %v", geoproc.ErrTypeMismatch, err)
	}
	return &Envelope{Kind: OutputNamedMap, Named: named}, true, nil
}

// outputIDs extracts the optional "outputIds" member: identifiers of
// output data products the caller must fetch separately.
func outputIDs(obj map[string]json.RawMessage) []string {
	raw, present := obj["outputIds"]
	if !present {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

// unmarshalObj re-marshals the already-split object into a typed struct.
func unmarshalObj(obj map[string]json.RawMessage, v any) error {
	buf, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

type rawKind int

const (
	kindInvalid rawKind = iota
	kindObject
	kindArray
	kindString
	kindNumber
	kindBool
	kindNull
)

// jsonKind classifies a raw JSON value by its first significant byte.
func jsonKind(raw json.RawMessage) rawKind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return kindInvalid
	}
	switch trimmed[0] {
	case '{':
		return kindObject
	case '[':
		return kindArray
	case '"':
		return kindString
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return kindNumber
	}
	return kindInvalid
}
