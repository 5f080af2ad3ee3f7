package domain

// pairspread.go — estadística del pair spread entre dos benchmarks
// (equal-weight vs cap-weight). El spread porcentual es la señal de
// régimen que dispara la capa 2: cuando el equal-weight diverge más de
// un umbral, hay setup de rotación sectorial.

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// PricePoint es una observación diaria de una serie de precios.
type PricePoint struct {
	Date   time.Time
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// minPairObservations es el mínimo de fechas comunes para calcular el spread.
const minPairObservations = 20

// SpreadDirection indica en qué sentido se considera extremo el spread.
type SpreadDirection string

const (
	DirectionPositive SpreadDirection = "positive"
	DirectionNegative SpreadDirection = "negative"
)

// RotationSignal clasifica el estado del spread en cuatro niveles.
type RotationSignal string

const (
	RotationStrong   RotationSignal = "STRONG_ROTATION"
	RotationModerate RotationSignal = "MODERATE_ROTATION"
	RotationReverse  RotationSignal = "REVERSE_ROTATION"
	RotationNeutral  RotationSignal = "NEUTRAL"
)

// PairSpreadStats resume la serie del spread.
type PairSpreadStats struct {
	Current float64
	Mean    float64
	Median  float64
	StdDev  float64
	Min     float64
	Max     float64
	P25     float64
	P75     float64
	P90     float64
	ZScore  float64
}

// ExtremeCheck es el resultado del chequeo de umbral.
type ExtremeCheck struct {
	Current           float64
	Threshold         float64
	IsExtreme         bool
	DistanceThreshold float64
}

// Rotation agrupa la señal de rotación con su confianza.
type Rotation struct {
	Signal      RotationSignal
	Description string
	Confidence  float64 // 0-100, cap 95
	Current     float64
	ZScore      float64
}

// BuildPairSpread alinea dos series por fecha, normaliza ambas a base 100
// en el primer punto común y devuelve la serie del spread porcentual:
// ((bNorm - aNorm) / aNorm) × 100, donde a = equal-weight, b = cap-weight.
func BuildPairSpread(a, b []PricePoint) ([]float64, error) {
	bByDate := make(map[time.Time]float64, len(b))
	for _, p := range b {
		bByDate[p.Date.Truncate(24*time.Hour)] = p.Close
	}

	var aligned [][2]float64
	for _, p := range a {
		if close, ok := bByDate[p.Date.Truncate(24*time.Hour)]; ok && p.Close > 0 && close > 0 {
			aligned = append(aligned, [2]float64{p.Close, close})
		}
	}

	if len(aligned) < minPairObservations {
		return nil, fmt.Errorf("domain.BuildPairSpread: %d fechas comunes (< %d)", len(aligned), minPairObservations)
	}

	baseA, baseB := aligned[0][0], aligned[0][1]
	spread := make([]float64, len(aligned))
	for i, pair := range aligned {
		aNorm := pair[0] / baseA * 100
		bNorm := pair[1] / baseB * 100
		spread[i] = (bNorm - aNorm) / aNorm * 100
	}

	return spread, nil
}

// ComputePairSpreadStats deriva los estadísticos de la serie del spread.
func ComputePairSpreadStats(spread []float64) (PairSpreadStats, error) {
	if len(spread) == 0 {
		return PairSpreadStats{}, fmt.Errorf("domain.ComputePairSpreadStats: serie vacía")
	}

	data := stats.Float64Data(spread)

	mean, err := data.Mean()
	if err != nil {
		return PairSpreadStats{}, fmt.Errorf("domain.ComputePairSpreadStats: mean: %w", err)
	}
	median, _ := data.Median()
	std, _ := data.StandardDeviationSample()
	minV, _ := data.Min()
	maxV, _ := data.Max()
	p25, _ := data.Percentile(25)
	p75, _ := data.Percentile(75)
	p90, _ := data.Percentile(90)

	current := spread[len(spread)-1]
	z := 0.0
	if std > 0 {
		z = (current - mean) / std
	}

	return PairSpreadStats{
		Current: current,
		Mean:    mean,
		Median:  median,
		StdDev:  std,
		Min:     minV,
		Max:     maxV,
		P25:     p25,
		P75:     p75,
		P90:     p90,
		ZScore:  z,
	}, nil
}

// IsSpreadExtreme chequea si el spread cruzó el umbral en la dirección
// configurada. El umbral es INCLUSIVO: 8.0 con threshold 8.0 es extremo.
func IsSpreadExtreme(current, threshold float64, direction SpreadDirection) ExtremeCheck {
	var extreme bool
	if direction == DirectionNegative {
		extreme = current <= -threshold
	} else {
		extreme = current >= threshold
	}

	return ExtremeCheck{
		Current:           current,
		Threshold:         threshold,
		IsExtreme:         extreme,
		DistanceThreshold: math.Abs(current - threshold),
	}
}

// SectorRotationSignal clasifica el spread en cuatro niveles con una
// confianza escalada por |z-score| y capada en 95.
func SectorRotationSignal(s PairSpreadStats, threshold float64) Rotation {
	absZ := math.Abs(s.ZScore)

	switch {
	case s.Current >= threshold:
		return Rotation{
			Signal:      RotationStrong,
			Description: "equal-weight muy rezagado: oportunidad fuerte de rotación",
			Confidence:  math.Min(50+absZ*15, 95),
			Current:     s.Current,
			ZScore:      s.ZScore,
		}
	case s.Current >= threshold*0.8:
		return Rotation{
			Signal:      RotationModerate,
			Description: "equal-weight rezagado: setup de rotación en desarrollo",
			Confidence:  math.Min(50+absZ*10, 80),
			Current:     s.Current,
			ZScore:      s.ZScore,
		}
	case s.Current <= -threshold:
		return Rotation{
			Signal:      RotationReverse,
			Description: "equal-weight sobresaliendo: posible reversión",
			Confidence:  math.Min(50+absZ*15, 95),
			Current:     s.Current,
			ZScore:      s.ZScore,
		}
	default:
		return Rotation{
			Signal:      RotationNeutral,
			Description: "sin señal de rotación significativa",
			Confidence:  50,
			Current:     s.Current,
			ZScore:      s.ZScore,
		}
	}
}

// ReversionProbability estima la probabilidad (0-100) de que el spread
// revierta hacia su media histórica.
//
// Método: busca observaciones previas a menos de 0.5σ del valor actual
// ("extremos similares"). Con menos de 5 análogos cae al heurístico por
// z-score (50 + 10|z|, cap 95). Con suficientes análogos, mira 20
// observaciones adelante de cada uno y cuenta cuántas veces el spread se
// movió hacia la media. Siempre clampa a [30, 95]: con muestras chicas no
// queremos extremos sobreconfiados.
func ReversionProbability(spread []float64, current float64) float64 {
	const (
		lookAhead  = 20
		minAnalogs = 5
		floor      = 30.0
		ceil       = 95.0
	)

	if len(spread) == 0 {
		return 50
	}

	data := stats.Float64Data(spread)
	mean, err := data.Mean()
	if err != nil {
		return 50
	}
	std, err := data.StandardDeviationSample()
	if err != nil || std <= 0 {
		return 50
	}

	z := (current - mean) / std

	// Índices de extremos similares al valor actual.
	var analogs []int
	for i, v := range spread {
		if math.Abs(v-current) < std*0.5 {
			analogs = append(analogs, i)
		}
	}

	var prob float64
	if len(analogs) < minAnalogs {
		prob = math.Min(50+math.Abs(z)*10, ceil)
	} else {
		reversions := 0
		counted := 0
		for _, idx := range analogs {
			future := idx + lookAhead
			if future >= len(spread) {
				continue
			}
			counted++
			futureVal := spread[future]
			if current > mean && futureVal < current {
				reversions++
			} else if current < mean && futureVal > current {
				reversions++
			}
		}
		if counted == 0 {
			prob = math.Min(50+math.Abs(z)*10, ceil)
		} else {
			prob = float64(reversions) / float64(len(analogs)) * 100
		}
	}

	return math.Min(math.Max(prob, floor), ceil)
}
