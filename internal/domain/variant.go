package domain

// ExperimentType is the discriminant that selects an experiment variant.
type ExperimentType string

// Variant catalog tags.
const (
	ExperimentTypeCount            ExperimentType = "COUNT"
	ExperimentTypeNonNegativeCount ExperimentType = "NONNEGATIVE_COUNT"
	ExperimentTypeMeasurement      ExperimentType = "MEASUREMENT"
)

// Variant is one entry of the catalog: the discriminant, the codec of the
// result type, and the admission predicate trials must satisfy.
type Variant[R Number] struct {
	Type   ExperimentType
	Result ResultCodec[R]
	Admit  func(result R) bool
}

// CountVariant admits every integer result.
var CountVariant = Variant[int64]{
	Type:   ExperimentTypeCount,
	Result: IntegerResult,
	Admit:  func(int64) bool { return true },
}

// NonNegativeCountVariant admits integer results >= 0.
var NonNegativeCountVariant = Variant[int64]{
	Type:   ExperimentTypeNonNegativeCount,
	Result: IntegerResult,
	Admit:  func(v int64) bool { return v >= 0 },
}

// MeasurementVariant admits every floating-point result.
var MeasurementVariant = Variant[float64]{
	Type:   ExperimentTypeMeasurement,
	Result: FloatResult,
	Admit:  func(float64) bool { return true },
}

// catalogEntry erases a variant's result type so the catalog can be one table.
type catalogEntry struct {
	typ   ExperimentType
	kind  ResultKind
	build func(ExperimentHeader) TypedExperiment
}

func register[R Number](v Variant[R]) catalogEntry {
	return catalogEntry{
		typ:  v.Type,
		kind: v.Result.Kind,
		build: func(h ExperimentHeader) TypedExperiment {
			return NewExperiment(v, h)
		},
	}
}

// catalog is the single registry of variants. ExperimentTypes, ResultKind and
// WireExperiment.ToTyped all read it, so a variant registered here is listed,
// typed and dispatched with no other change.
var catalog = []catalogEntry{
	register(CountVariant),
	register(NonNegativeCountVariant),
	register(MeasurementVariant),
}

func lookup(t ExperimentType) (catalogEntry, bool) {
	for _, e := range catalog {
		if e.typ == t {
			return e, true
		}
	}
	return catalogEntry{}, false
}

// ExperimentTypes lists every registered discriminant in catalog order.
func ExperimentTypes() []ExperimentType {
	types := make([]ExperimentType, len(catalog))
	for i, e := range catalog {
		types[i] = e.typ
	}
	return types
}

// ResultKind returns the numeric kind recorded by the variant t selects.
func (t ExperimentType) ResultKind() (ResultKind, bool) {
	e, ok := lookup(t)
	return e.kind, ok
}

// IsKnown reports whether t is registered in the catalog.
func (t ExperimentType) IsKnown() bool {
	_, ok := lookup(t)
	return ok
}
