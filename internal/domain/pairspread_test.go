package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(start time.Time, closes ...float64) []PricePoint {
	points := make([]PricePoint, len(closes))
	for i, c := range closes {
		points[i] = PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return points
}

func TestBuildPairSpread_NormalizesToFirstCommonPoint(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	// a plana en 50, b sube 10% sobre 25 días: el spread termina en +10.
	aCloses := make([]float64, 25)
	bCloses := make([]float64, 25)
	for i := range aCloses {
		aCloses[i] = 50
		bCloses[i] = 200 * (1 + 0.10*float64(i)/24)
	}

	spread, err := BuildPairSpread(series(start, aCloses...), series(start, bCloses...))
	require.NoError(t, err)
	require.Len(t, spread, 25)

	assert.InDelta(t, 0.0, spread[0], 1e-9) // base común
	assert.InDelta(t, 10.0, spread[24], 1e-9)
}

func TestBuildPairSpread_AlignsByDate(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	a := series(start, make([]float64, 30)...)
	for i := range a {
		a[i].Close = 100
		a[i].Date = a[i].Date.Add(14 * time.Hour) // hora intradía distinta
	}
	b := series(start, make([]float64, 30)...)
	for i := range b {
		b[i].Close = 100
	}
	// b pierde 5 fechas: siguen quedando 25 comunes.
	b = b[:25]

	spread, err := BuildPairSpread(a, b)
	require.NoError(t, err)
	assert.Len(t, spread, 25)
}

func TestBuildPairSpread_InsufficientOverlap(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	a := series(start, 100, 101, 102, 103, 104)
	b := series(start, 200, 201, 202, 203, 204)

	_, err := BuildPairSpread(a, b)
	assert.Error(t, err)
}

func TestComputePairSpreadStats(t *testing.T) {
	spread := []float64{-2, -1, 0, 1, 2, 3, 4, 5, 6, 7}

	s, err := ComputePairSpreadStats(spread)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, s.Current, 1e-9) // último valor
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, -2.0, s.Min, 1e-9)
	assert.InDelta(t, 7.0, s.Max, 1e-9)
	assert.Greater(t, s.ZScore, 0.0)
}

func TestComputePairSpreadStats_ConstantSeries(t *testing.T) {
	// Serie constante: desviación 0 → z-score 0, no NaN.
	spread := []float64{3, 3, 3, 3, 3}

	s, err := ComputePairSpreadStats(spread)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ZScore)
	assert.False(t, math.IsNaN(s.ZScore))
}

func TestComputePairSpreadStats_Empty(t *testing.T) {
	_, err := ComputePairSpreadStats(nil)
	assert.Error(t, err)
}

func TestIsSpreadExtreme_InclusiveBoundary(t *testing.T) {
	// El umbral es inclusivo: 8.0 con threshold 8.0 sí es extremo.
	check := IsSpreadExtreme(8.0, 8.0, DirectionPositive)
	assert.True(t, check.IsExtreme)

	check = IsSpreadExtreme(7.99, 8.0, DirectionPositive)
	assert.False(t, check.IsExtreme)

	check = IsSpreadExtreme(-8.0, 8.0, DirectionNegative)
	assert.True(t, check.IsExtreme)

	check = IsSpreadExtreme(-7.5, 8.0, DirectionNegative)
	assert.False(t, check.IsExtreme)
}

func TestSectorRotationSignal_Bands(t *testing.T) {
	threshold := 8.0

	r := SectorRotationSignal(PairSpreadStats{Current: 9.5, ZScore: 2.1}, threshold)
	assert.Equal(t, RotationStrong, r.Signal)
	// 50 + 2.1×15 = 81.5
	assert.InDelta(t, 81.5, r.Confidence, 1e-9)

	r = SectorRotationSignal(PairSpreadStats{Current: 7.0, ZScore: 1.5}, threshold)
	assert.Equal(t, RotationModerate, r.Signal)
	assert.InDelta(t, 65.0, r.Confidence, 1e-9)
	assert.LessOrEqual(t, r.Confidence, 80.0)

	r = SectorRotationSignal(PairSpreadStats{Current: -9.0, ZScore: -2.0}, threshold)
	assert.Equal(t, RotationReverse, r.Signal)

	r = SectorRotationSignal(PairSpreadStats{Current: 1.2, ZScore: 0.3}, threshold)
	assert.Equal(t, RotationNeutral, r.Signal)
	assert.Equal(t, 50.0, r.Confidence)
}

func TestSectorRotationSignal_ConfidenceCap(t *testing.T) {
	r := SectorRotationSignal(PairSpreadStats{Current: 20, ZScore: 6}, 8.0)
	assert.Equal(t, 95.0, r.Confidence)
}

func TestReversionProbability_FallbackOnFewAnalogs(t *testing.T) {
	// Serie corta con valor actual muy alejado: sin análogos suficientes
	// cae al heurístico por z-score, clampado a [30, 95].
	spread := []float64{0, 0.1, -0.1, 0.2, -0.2, 0.1, 0, -0.1, 0.2, 0}

	prob := ReversionProbability(spread, 5.0)
	assert.GreaterOrEqual(t, prob, 30.0)
	assert.LessOrEqual(t, prob, 95.0)
	assert.Greater(t, prob, 50.0) // |z| grande empuja por encima del neutral
}

func TestReversionProbability_EmptySeries(t *testing.T) {
	assert.Equal(t, 50.0, ReversionProbability(nil, 3.0))
}

func TestReversionProbability_Bounds(t *testing.T) {
	// Serie larga oscilante: el resultado siempre queda en [30, 95].
	spread := make([]float64, 200)
	for i := range spread {
		spread[i] = 4 * math.Sin(float64(i)/10)
	}

	for _, current := range []float64{-6, -4, 0, 4, 6} {
		prob := ReversionProbability(spread, current)
		assert.GreaterOrEqual(t, prob, 30.0)
		assert.LessOrEqual(t, prob, 95.0)
	}
}
