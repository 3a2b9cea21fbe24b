package ann

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vexcore/vexel/domain/vector"
)

func TestSortHitsByScoreDescKeyAsc_OrdersByScoreDescending(t *testing.T) {
	hits := []vector.Hit{
		{Key: 3, Score: 0.1},
		{Key: 1, Score: 0.9},
		{Key: 2, Score: 0.5},
	}
	sortHitsByScoreDescKeyAsc(hits)
	require.Equal(t, []vector.Hit{
		{Key: 1, Score: 0.9},
		{Key: 2, Score: 0.5},
		{Key: 3, Score: 0.1},
	}, hits)
}

func TestSortHitsByScoreDescKeyAsc_BreaksTiesByAscendingKey(t *testing.T) {
	hits := []vector.Hit{
		{Key: 5, Score: 0.5},
		{Key: 2, Score: 0.5},
		{Key: 9, Score: 0.5},
	}
	sortHitsByScoreDescKeyAsc(hits)
	require.Equal(t, []uint64{2, 5, 9}, []uint64{hits[0].Key, hits[1].Key, hits[2].Key})
}

func TestSortHitsByScoreDescKeyAsc_EmptyAndSingle(t *testing.T) {
	empty := []vector.Hit{}
	sortHitsByScoreDescKeyAsc(empty)
	require.Empty(t, empty)

	single := []vector.Hit{{Key: 1, Score: 0.3}}
	sortHitsByScoreDescKeyAsc(single)
	require.Equal(t, uint64(1), single[0].Key)
}

func TestToUsearchMetric(t *testing.T) {
	require.Equal(t, toUsearchMetric(vector.MetricCosine), toUsearchMetric(vector.MetricCosine))
	require.NotEqual(t, toUsearchMetric(vector.MetricL2), toUsearchMetric(vector.MetricCosine))
	require.NotEqual(t, toUsearchMetric(vector.MetricIP), toUsearchMetric(vector.MetricCosine))
}

func TestToUsearchQuantization(t *testing.T) {
	require.NotEqual(t, toUsearchQuantization(vector.ElementF16), toUsearchQuantization(vector.ElementF32))
}
