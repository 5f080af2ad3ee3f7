package domain

// greeks.go — pricing Black-Scholes y sensibilidades.
//
// Política de errores: los inputs degenerados (spot/strike <= 0, IV <= 0)
// devuelven ErrNotComputable en lugar de propagar NaN/Inf al ranking.
// El caller excluye el contrato y el scan sigue — nunca aborta el ciclo.

import (
	"errors"
	"math"
	"time"
)

// ErrNotComputable marca un contrato cuyos Greeks no se pueden calcular.
var ErrNotComputable = errors.New("greeks not computable")

// ComputeGreeks calcula delta, gamma, theta, vega y rho con Black-Scholes.
//   - years: tiempo a expiración en años. <= 0 colapsa al límite intrínseco
//     (delta ∈ {0,1} call, {-1,0} put; resto 0) en vez de dividir por cero.
//   - rate: tasa libre de riesgo como decimal (0.05 = 5%).
//   - iv: volatilidad implícita como decimal.
func ComputeGreeks(spot, strike, years, rate, iv float64, optType OptionType) (Greeks, error) {
	if spot <= 0 || strike <= 0 {
		return Greeks{}, ErrNotComputable
	}

	if years <= 0 {
		// Contrato expirado: solo queda el valor intrínseco.
		var delta float64
		if optType == OptionCall {
			if spot > strike {
				delta = 1
			}
		} else {
			if spot < strike {
				delta = -1
			}
		}
		return Greeks{Delta: delta}, nil
	}

	if iv <= 0 {
		return Greeks{}, ErrNotComputable
	}

	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (rate+0.5*iv*iv)*years) / (iv * sqrtT)
	d2 := d1 - iv*sqrtT

	discount := math.Exp(-rate * years)

	var g Greeks
	if optType == OptionCall {
		g.Delta = normCDF(d1)
		g.Theta = -spot*normPDF(d1)*iv/(2*sqrtT) - rate*strike*discount*normCDF(d2)
		g.Rho = strike * years * discount * normCDF(d2) / 100
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = -spot*normPDF(d1)*iv/(2*sqrtT) + rate*strike*discount*normCDF(-d2)
		g.Rho = -strike * years * discount * normCDF(-d2) / 100
	}

	// Gamma y vega son iguales para calls y puts.
	g.Gamma = normPDF(d1) / (spot * iv * sqrtT)
	g.Vega = spot * normPDF(d1) * sqrtT / 100 // por cambio de 1 punto de IV

	// Theta por día de calendario.
	g.Theta /= 365

	if math.IsNaN(g.Delta) || math.IsInf(g.Delta, 0) {
		return Greeks{}, ErrNotComputable
	}

	return g, nil
}

// TheoPrice calcula el precio teórico Black-Scholes del contrato.
// Con years <= 0 devuelve el valor intrínseco.
func TheoPrice(spot, strike, years, rate, iv float64, optType OptionType) (float64, error) {
	if spot <= 0 || strike <= 0 {
		return 0, ErrNotComputable
	}

	if years <= 0 {
		if optType == OptionCall {
			return math.Max(spot-strike, 0), nil
		}
		return math.Max(strike-spot, 0), nil
	}

	if iv <= 0 {
		return 0, ErrNotComputable
	}

	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (rate+0.5*iv*iv)*years) / (iv * sqrtT)
	d2 := d1 - iv*sqrtT
	discount := math.Exp(-rate * years)

	var price float64
	if optType == OptionCall {
		price = spot*normCDF(d1) - strike*discount*normCDF(d2)
	} else {
		price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
	}

	if math.IsNaN(price) {
		return 0, ErrNotComputable
	}
	return price, nil
}

// ProbITM estima la probabilidad de terminar in-the-money desde el delta.
// Para calls delta ≈ prob ITM; para puts |delta| ≈ prob ITM. Devuelve 0-100.
func ProbITM(delta float64, optType OptionType) float64 {
	if optType == OptionCall {
		return delta * 100
	}
	return math.Abs(delta) * 100
}

// ProbOTM estima la probabilidad de terminar out-of-the-money. Devuelve 0-100.
func ProbOTM(delta float64, optType OptionType) float64 {
	return 100 - ProbITM(delta, optType)
}

// IVPercentileRank calcula el rank percentil de la IV actual contra una
// muestra histórica: fracción de muestras estrictamente por debajo, 0-100.
// Sin muestra devuelve 50 (neutral).
func IVPercentileRank(currentIV float64, historical []float64) float64 {
	if len(historical) == 0 {
		return 50
	}
	below := 0
	for _, iv := range historical {
		if iv < currentIV {
			below++
		}
	}
	return float64(below) / float64(len(historical)) * 100
}

// DaysToExpiration devuelve los días de calendario hasta la expiración.
func DaysToExpiration(expiration, now time.Time) int {
	return int(expiration.Sub(now).Hours() / 24)
}

// YearsToExpiration devuelve el tiempo a expiración en años (base 365).
func YearsToExpiration(expiration, now time.Time) float64 {
	return float64(DaysToExpiration(expiration, now)) / 365
}

// normCDF es la CDF de la normal estándar vía math.Erf.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF es la densidad de la normal estándar.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
