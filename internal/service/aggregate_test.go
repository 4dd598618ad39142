package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func wireExp(id string, typ domain.ExperimentType, created time.Time) domain.WireExperiment {
	return domain.WireExperiment{
		DatabaseID:   id,
		Type:         typ,
		Owner:        "alice",
		CreationDate: created,
		Status:       domain.ExperimentStatusPublished,
	}
}

func ids(exps []domain.TypedExperiment) []string {
	out := make([]string, len(exps))
	for i, e := range exps {
		out[i] = e.DatabaseID()
	}
	return out
}

func TestAggregate_SortsNewestFirstAndStable(t *testing.T) {
	t.Parallel()

	t1 := baseTime
	t2 := baseTime.Add(time.Hour)
	t3 := baseTime.Add(2 * time.Hour)

	res := Aggregate([]domain.WireExperiment{
		wireExp("c", domain.ExperimentTypeCount, t3),
		wireExp("a1", domain.ExperimentTypeMeasurement, t1),
		wireExp("b", domain.ExperimentTypeNonNegativeCount, t2),
		wireExp("a2", domain.ExperimentTypeCount, t1),
	})

	assert.Empty(t, res.Failures)
	assert.Equal(t, []string{"c", "b", "a1", "a2"}, ids(res.Experiments))
}

func TestAggregate_PartialBatch(t *testing.T) {
	t.Parallel()

	candidates := []domain.WireExperiment{
		wireExp("r1", domain.ExperimentTypeCount, baseTime),
		wireExp("r2", domain.ExperimentTypeMeasurement, baseTime.Add(time.Minute)),
		wireExp("r3", "BINOMIAL", baseTime.Add(2*time.Minute)),
		wireExp("r4", domain.ExperimentTypeNonNegativeCount, baseTime.Add(3*time.Minute)),
		wireExp("r5", domain.ExperimentTypeCount, baseTime.Add(4*time.Minute)),
	}

	res := Aggregate(candidates)

	assert.Equal(t, []string{"r5", "r4", "r2", "r1"}, ids(res.Experiments))
	require.Len(t, res.Failures, 1)

	failure := res.Failures[0]
	assert.Equal(t, 2, failure.Index)
	assert.Equal(t, "r3", failure.DatabaseID)
	assert.Equal(t, domain.ExperimentType("BINOMIAL"), failure.Type)
	assert.ErrorIs(t, failure, domain.ErrUnknownExperimentType)
	assert.Contains(t, failure.Error(), "record 2 (r3)")
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	res := Aggregate(nil)
	assert.NotNil(t, res.Experiments)
	assert.NotNil(t, res.Failures)
	assert.Empty(t, res.Experiments)
	assert.Empty(t, res.Failures)
}

func TestAggregate_RandomBatchesAreOrdered(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	types := append(domain.ExperimentTypes(), "UNKNOWN")

	for round := 0; round < 50; round++ {
		n := rng.Intn(30)
		candidates := make([]domain.WireExperiment, n)
		unknown := 0
		for i := range candidates {
			typ := types[rng.Intn(len(types))]
			if !typ.IsKnown() {
				unknown++
			}
			// Few distinct timestamps so ties are common.
			created := baseTime.Add(time.Duration(rng.Intn(5)) * time.Minute)
			candidates[i] = wireExp(string(rune('a'+i)), typ, created)
		}

		res := Aggregate(candidates)
		require.Len(t, res.Failures, unknown)
		require.Len(t, res.Experiments, n-unknown)

		for i := 1; i < len(res.Experiments); i++ {
			prev, cur := res.Experiments[i-1], res.Experiments[i]
			require.False(t, cur.CreationDate().After(prev.CreationDate()), "round %d not descending", round)
			if cur.CreationDate().Equal(prev.CreationDate()) {
				// ids were assigned in input order
				require.Less(t, prev.DatabaseID(), cur.DatabaseID(), "round %d not stable", round)
			}
		}
	}
}
