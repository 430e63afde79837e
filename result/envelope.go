// Package result normalizes the heterogeneous payloads a geoprocessing
// service returns for succeeded jobs into one typed envelope.
//
// The same logical output arrives in different wire shapes depending on
// which operation produced it: a feature collection may be flat or
// nested one level deeper under an output-parameter name. [Decode]
// resolves shapes in a fixed priority order and reports ambiguity as an
// error rather than guessing; every accepted shape is enumerated here.
package result

import "encoding/json"

// OutputKind declares the shape a caller expects a job's output in.
// The decoder never infers a kind the caller did not declare.
type OutputKind string

const (
	// OutputFeatureCollection is a set of geographic features.
	OutputFeatureCollection OutputKind = "features"
	// OutputRaster is a reference to a raster or image product that the
	// caller fetches separately.
	OutputRaster OutputKind = "raster"
	// OutputScalar is a single numeric, text, or boolean value.
	OutputScalar OutputKind = "scalar"
	// OutputNamedMap is a key-value map of named outputs, each left raw
	// for the caller to interpret.
	OutputNamedMap OutputKind = "named-map"
)

// Feature is one geographic feature: geometry plus attributes.
// Geometry stays raw; interpreting it is the caller's concern.
type Feature struct {
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

// FeatureCollection is the decoded feature-set output shape.
type FeatureCollection struct {
	GeometryType     string          `json:"geometryType,omitempty"`
	SpatialReference json.RawMessage `json:"spatialReference,omitempty"`
	Features         []Feature       `json:"features"`
}

// RasterRef points at a raster product for separate retrieval.
type RasterRef struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Scalar is a single value output. Exactly one field is set, matching
// the value's wire type; there is no cross-type coercion.
type Scalar struct {
	Number *float64
	Text   *string
	Bool   *bool
}

// Envelope is the normalized outcome of a succeeded job. Kind names the
// variant; exactly one of the variant fields is populated. An Envelope
// is only ever built from a successful job's payload.
type Envelope struct {
	Kind OutputKind

	Features *FeatureCollection
	Raster   *RasterRef
	Scalar   *Scalar
	Named    map[string]json.RawMessage

	// OutputRefs lists identifiers of output data products the caller
	// must fetch separately: the service's advertised output IDs plus,
	// for rasters, the product URL.
	OutputRefs []string
}
