package domain

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireTrial_RoundTrip(t *testing.T) {
	t.Parallel()

	loc := &Location{Latitude: -33.9, Longitude: 151.2}

	t.Run("count", func(t *testing.T) {
		for _, v := range []int64{0, -7, math.MaxInt64, math.MinInt64} {
			trial := NewCountTrial("bob", testCreated, loc, v)
			trial.SetIgnored(true)

			wire := FromTypedTrial(trial, IntegerResult.Format)
			back, err := ToTypedTrial(wire, IntegerResult.Parse)
			require.NoError(t, err)

			assert.Equal(t, v, back.Result())
			assert.Equal(t, "bob", back.Creator())
			assert.True(t, back.CreationDate().Equal(testCreated))
			assert.Equal(t, loc, back.Location())
			assert.True(t, back.IsIgnored())
		}
	})

	t.Run("measurement", func(t *testing.T) {
		for _, v := range []float64{0.1, -2.5e-10, math.MaxFloat64, math.Inf(-1)} {
			trial := NewMeasurementTrial("carol", testCreated, nil, v)
			back, err := ToTypedTrial(FromTypedTrial(trial, FloatResult.Format), FloatResult.Parse)
			require.NoError(t, err)
			assert.Equal(t, v, back.Result())
			assert.False(t, back.HasLocation())
		}
	})
}

func TestToTypedTrial_Malformed(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "ten", "1.5"} {
		_, err := ToTypedTrial(WireTrial{Creator: "bob", ResultStr: s}, IntegerResult.Parse)
		assert.ErrorIs(t, err, ErrMalformedResult, "result %q", s)
	}

	// Foreign parsers still surface as malformed results.
	_, err := ToTypedTrial(WireTrial{Creator: "bob", ResultStr: "x"}, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
	assert.ErrorIs(t, err, ErrMalformedResult)
}

func TestWireExperiment_DispatchesEveryCatalogEntry(t *testing.T) {
	t.Parallel()

	wantKind := map[ExperimentType]ResultKind{
		ExperimentTypeCount:            ResultKindInteger,
		ExperimentTypeNonNegativeCount: ResultKindInteger,
		ExperimentTypeMeasurement:      ResultKindFloat,
	}
	require.Len(t, ExperimentTypes(), len(wantKind))

	for _, typ := range ExperimentTypes() {
		t.Run(string(typ), func(t *testing.T) {
			wire := WireExperiment{
				DatabaseID:         "exp-1",
				Type:               typ,
				Owner:              "alice",
				CreationDate:       testCreated,
				Description:        "desc",
				Region:             &Location{Latitude: 10, Longitude: 20},
				RequireLocation:    true,
				RequiredNumOfTrial: 12,
				Status:             ExperimentStatusPublished,
				Experimenters:      []string{"bob"},
				Keywords:           []string{"k"},
			}

			exp, err := wire.ToTyped()
			require.NoError(t, err)
			assert.Equal(t, typ, exp.Type())
			assert.Equal(t, wantKind[typ], exp.ResultKind())

			kind, ok := typ.ResultKind()
			assert.True(t, ok)
			assert.Equal(t, wantKind[typ], kind)

			switch exp.(type) {
			case *Experiment[int64]:
				assert.Equal(t, ResultKindInteger, wantKind[typ])
			case *Experiment[float64]:
				assert.Equal(t, ResultKindFloat, wantKind[typ])
			default:
				t.Fatalf("unexpected concrete type %T", exp)
			}

			assert.Equal(t, wire, exp.ToWire(), "scalar fields must be copied verbatim")
		})
	}
}

func TestWireExperiment_UnknownType(t *testing.T) {
	t.Parallel()

	for _, typ := range []ExperimentType{"", "BINOMIAL", "count"} {
		exp, err := WireExperiment{Type: typ, Owner: "alice"}.ToTyped()
		assert.Nil(t, exp)
		assert.ErrorIs(t, err, ErrUnknownExperimentType)
		assert.False(t, typ.IsKnown())
	}
}

func TestWireExperiment_DetachedFromTyped(t *testing.T) {
	t.Parallel()

	wire := WireExperiment{
		Type:          ExperimentTypeCount,
		Owner:         "alice",
		CreationDate:  testCreated,
		Status:        ExperimentStatusDraft,
		Experimenters: []string{"bob"},
	}
	exp, err := wire.ToTyped()
	require.NoError(t, err)

	wire.Experimenters[0] = "mallory"
	assert.Equal(t, []string{"bob"}, exp.Header().Experimenters)
}

func TestAddWireTrial(t *testing.T) {
	t.Parallel()

	exp := NewNonNegativeCountExperiment(testHeader(false))

	require.NoError(t, exp.AddWireTrial(WireTrial{Creator: "bob", CreationDate: testCreated, ResultStr: "3"}))
	assert.ErrorIs(t, exp.AddWireTrial(WireTrial{Creator: "bob", ResultStr: "-3"}), ErrInvalidResult)
	assert.ErrorIs(t, exp.AddWireTrial(WireTrial{Creator: "bob", ResultStr: "3.5"}), ErrMalformedResult)

	wires := exp.WireTrials()
	require.Len(t, wires, 1)
	assert.Equal(t, "3", wires[0].ResultStr)
}

func TestCatalog_TagsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[ExperimentType]bool)
	for _, typ := range ExperimentTypes() {
		assert.False(t, seen[typ], "tag %s registered twice", typ)
		seen[typ] = true

		e, ok := lookup(typ)
		require.True(t, ok)
		assert.Equal(t, typ, e.build(ExperimentHeader{}).Type())
	}
	assert.False(t, ExperimentType("BINOMIAL").IsKnown())
}
