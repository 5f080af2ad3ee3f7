package domain

// fundamentals.go — capa 1: evaluación de fundamentales.
//
// Función pura sobre un snapshot: sin estado, sin I/O. El snapshot es
// inmutable una vez fetcheado y pertenece al scan run que lo creó.

import (
	"fmt"
	"time"
)

// FundamentalSnapshot son los fundamentales de una empresa en un instante.
type FundamentalSnapshot struct {
	Symbol      string
	CompanyName string

	Price     float64
	MarketCap float64

	PERatio      float64
	ROE          float64 // en %
	DebtToEquity float64

	// EPS de los últimos tres trimestres, del más reciente al más antiguo.
	EPSCurrent float64
	EPSQ1Ago   float64
	EPSQ2Ago   float64

	Sector   string
	Industry string

	// Correlación de retornos contra la cesta benchmark (mega-cap growth).
	BenchmarkCorrelation float64

	FetchedAt time.Time
}

// FundamentalRules son los umbrales de la capa 1, inyectados por config.
type FundamentalRules struct {
	PEMin          float64
	PEMax          float64
	MinMarketCap   float64
	AllowedSectors []string
	MaxDebtEquity  float64
	MinROE         float64
	// MaxCorrelation exige correlación negativa contra la cesta benchmark
	// (diversificación real): la correlación debe ser <= este techo.
	MaxCorrelation float64
}

// DefaultFundamentalRules devuelve los umbrales de estrategia de referencia.
func DefaultFundamentalRules() FundamentalRules {
	return FundamentalRules{
		PEMin:        8,
		PEMax:        15,
		MinMarketCap: 10_000_000_000,
		AllowedSectors: []string{
			"Financials", "Healthcare", "Consumer Staples",
			"Utilities", "Industrials",
		},
		MaxDebtEquity:  1.5,
		MinROE:         12,
		MaxCorrelation: -0.3,
	}
}

// EPSGrowthPositive indica si el EPS creció los últimos dos trimestres:
// tres lecturas consecutivas estrictamente crecientes hacia el presente.
func (f FundamentalSnapshot) EPSGrowthPositive() bool {
	return f.EPSCurrent > f.EPSQ1Ago && f.EPSQ1Ago > f.EPSQ2Ago
}

// EvaluateFundamentals chequea el snapshot contra las reglas de la capa 1.
func EvaluateFundamentals(f FundamentalSnapshot, r FundamentalRules) CheckResult {
	c := newCheck()

	if f.PERatio < r.PEMin || f.PERatio > r.PEMax {
		c.fail(fmt.Sprintf("P/E %.1f fuera de [%.0f, %.0f]", f.PERatio, r.PEMin, r.PEMax))
	}
	if f.MarketCap < r.MinMarketCap {
		c.fail(fmt.Sprintf("market cap $%.1fB < $%.0fB", f.MarketCap/1e9, r.MinMarketCap/1e9))
	}
	if f.BenchmarkCorrelation > r.MaxCorrelation {
		c.fail(fmt.Sprintf("correlación benchmark %.2f > %.2f", f.BenchmarkCorrelation, r.MaxCorrelation))
	}
	if !sectorAllowed(f.Sector, r.AllowedSectors) {
		c.fail(fmt.Sprintf("sector %q fuera de la lista permitida", f.Sector))
	}
	if !f.EPSGrowthPositive() {
		c.fail("EPS sin crecimiento positivo los últimos 2 trimestres")
	}
	if f.DebtToEquity >= r.MaxDebtEquity {
		c.fail(fmt.Sprintf("debt/equity %.2f >= %.1f", f.DebtToEquity, r.MaxDebtEquity))
	}
	if f.ROE <= r.MinROE {
		c.fail(fmt.Sprintf("ROE %.1f%% <= %.0f%%", f.ROE, r.MinROE))
	}

	return c
}

// ValueScore calcula el score compuesto de valor para ordenar candidatos
// cuando pasan más de los que admite la capacidad aguas abajo.
// Pondera: valuación 0.3, rentabilidad 0.3, apalancamiento 0.2,
// diversificación 0.2. Cada componente se normaliza a 0-100.
func ValueScore(f FundamentalSnapshot) float64 {
	var score float64

	// P/E: más bajo es mejor dentro de la banda 8-15.
	if f.PERatio > 0 {
		score += max0((15-f.PERatio)/7*100) * 0.3
	}
	// ROE: más alto es mejor, saturando en 20%.
	if f.ROE > 0 {
		score += min100(f.ROE/20*100) * 0.3
	}
	// D/E: balance más limpio es mejor.
	if f.DebtToEquity > 0 {
		score += max0((1.5-f.DebtToEquity)/1.5*100) * 0.2
	}
	// Correlación: más negativa es mejor diversificación.
	if f.BenchmarkCorrelation != 0 {
		score += max0((-f.BenchmarkCorrelation-0.3)/0.7*100) * 0.2
	}

	return score
}

func sectorAllowed(sector string, allowed []string) bool {
	for _, s := range allowed {
		if s == sector {
			return true
		}
	}
	return false
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}
