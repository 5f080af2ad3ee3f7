package domain

// spread.go — construcción y calificación de spreads verticales de dos patas.
//
// Dos familias con convenciones de signo opuestas:
//   - CreditPutSpread (bull put): vende el put de strike alto, compra el bajo.
//     Cobra prima; el riesgo es width - prima.
//   - DebitCallSpread (bull call): compra el call bajo, vende el alto.
//     Paga débito; el beneficio máximo es width - débito.
//
// La búsqueda es acotada: primero se filtran las patas candidatas por ventana
// de delta (normalmente quedan un puñado), después se cruzan contra las patas
// de cobertura dentro de la banda de width. O(n×m) en el peor caso sobre una
// expiración, nunca el producto cruzado de toda la cadena.

import (
	"fmt"
	"math"
)

// SpreadType identifica la familia del spread.
type SpreadType string

const (
	SpreadCreditPut SpreadType = "credit_put"
	SpreadDebitCall SpreadType = "debit_call"
)

// VerticalSpread es el contrato común de las dos familias.
// Los rankers y el motor de riesgo operan sobre esta interfaz sin duplicar
// el pipeline por familia.
type VerticalSpread interface {
	Symbol() string
	Type() SpreadType
	Width() float64
	// EntryPrice es la prima cobrada (credit) o el débito pagado (debit).
	EntryPrice() float64
	MaxProfit() float64
	MaxLoss() float64
	Breakeven() float64
	NetGreeks() Greeks
	// PoP es la probabilidad de beneficio 0-100 derivada del delta de la
	// pata que controla el spread.
	PoP() float64
	DTE() int
	// Qualify evalúa el predicado de calificación de la familia y devuelve
	// la lista ordenada de criterios violados.
	Qualify(p SpreadParams) CheckResult
	// QualityScore es el score compuesto para ordenar spreads supervivientes.
	QualityScore() float64
	Legs() (short, long OptionQuote)
}

// SpreadParams contiene las ventanas de construcción y calificación.
// Son parámetros de estrategia inyectados por configuración, no constantes.
type SpreadParams struct {
	// Credit (put): ventana de delta del short put (negativa).
	CreditDeltaMin float64 // p.ej. -0.20
	CreditDeltaMax float64 // p.ej. -0.15
	// Debit (call): ventana de delta del long call.
	DebitDeltaMin float64 // p.ej. 0.60
	DebitDeltaMax float64 // p.ej. 0.70

	WidthMin float64
	WidthMax float64

	CreditDTEMin int
	CreditDTEMax int
	DebitDTEMin  int
	DebitDTEMax  int

	// Credit: theta neto mínimo por día (el spread debe cobrar tiempo).
	CreditMinTheta float64
	// Debit: theta neto más negativo aceptable.
	DebitMinTheta float64

	// Credit: IV percentile mínimo del short put (vender caro).
	CreditMinIVPct float64
	// Debit: banda de IV percentile del long call (comprar barato).
	DebitIVPctMin float64
	DebitIVPctMax float64

	// Techo de |gamma| neto: evita spreads cuyo delta cambia bruscamente.
	MaxGamma float64

	// Credit: prima/width mínimo en % (compensación por riesgo).
	MinPremiumWidthPct float64
	// Debit: reward/risk mínimo.
	MinRewardRisk float64
}

// DefaultSpreadParams devuelve las ventanas de estrategia de referencia.
func DefaultSpreadParams() SpreadParams {
	return SpreadParams{
		CreditDeltaMin:     -0.20,
		CreditDeltaMax:     -0.15,
		DebitDeltaMin:      0.60,
		DebitDeltaMax:      0.70,
		WidthMin:           5,
		WidthMax:           10,
		CreditDTEMin:       30,
		CreditDTEMax:       45,
		DebitDTEMin:        60,
		DebitDTEMax:        90,
		CreditMinTheta:     0.05,
		DebitMinTheta:      -0.03,
		CreditMinIVPct:     67,
		DebitIVPctMin:      30,
		DebitIVPctMax:      50,
		MaxGamma:           0.05,
		MinPremiumWidthPct: 15,
		MinRewardRisk:      2.0,
	}
}

// CreditPutSpread es un bull put spread: short put arriba, long put debajo.
type CreditPutSpread struct {
	Sym      string
	ShortPut OptionQuote
	LongPut  OptionQuote

	StrikeWidth float64
	NetPremium  float64 // prima neta cobrada
	Profit      float64 // = NetPremium
	Loss        float64 // = StrikeWidth - NetPremium
	BreakevenPx float64
	Net         Greeks
	Prob        float64 // PoP 0-100
	Days        int
}

// NewCreditPutSpread construye el spread y deriva todas sus métricas.
// Invariantes: shortPut.Strike > longPut.Strike y netPremium > 0;
// los violan quien llama, no se re-chequean aquí.
func NewCreditPutSpread(symbol string, shortPut, longPut OptionQuote, netPremium float64) *CreditPutSpread {
	width := shortPut.Strike - longPut.Strike
	s := &CreditPutSpread{
		Sym:         symbol,
		ShortPut:    shortPut,
		LongPut:     longPut,
		StrikeWidth: width,
		NetPremium:  netPremium,
		Profit:      netPremium,
		Loss:        width - netPremium,
		BreakevenPx: shortPut.Strike - netPremium,
		Days:        shortPut.DTE,
	}

	// Greeks netos: la pata vendida entra con signo invertido.
	s.Net = netSpreadGreeks(longPut.Greeks, shortPut.Greeks)

	// PoP desde el delta del short put: prob OTM = 1 - |delta|.
	s.Prob = (1 - math.Abs(shortPut.Greeks.Delta)) * 100
	return s
}

func (s *CreditPutSpread) Symbol() string     { return s.Sym }
func (s *CreditPutSpread) Type() SpreadType   { return SpreadCreditPut }
func (s *CreditPutSpread) Width() float64     { return s.StrikeWidth }
func (s *CreditPutSpread) EntryPrice() float64 { return s.NetPremium }
func (s *CreditPutSpread) MaxProfit() float64 { return s.Profit }
func (s *CreditPutSpread) MaxLoss() float64   { return s.Loss }
func (s *CreditPutSpread) Breakeven() float64 { return s.BreakevenPx }
func (s *CreditPutSpread) NetGreeks() Greeks  { return s.Net }
func (s *CreditPutSpread) PoP() float64       { return s.Prob }
func (s *CreditPutSpread) DTE() int           { return s.Days }
func (s *CreditPutSpread) Legs() (short, long OptionQuote) {
	return s.ShortPut, s.LongPut
}

// PremiumWidthRatio devuelve la prima cobrada como % del width.
func (s *CreditPutSpread) PremiumWidthRatio() float64 {
	if s.StrikeWidth <= 0 {
		return 0
	}
	return s.NetPremium / s.StrikeWidth * 100
}

// Qualify chequea el predicado completo de la familia credit.
func (s *CreditPutSpread) Qualify(p SpreadParams) CheckResult {
	c := newCheck()

	d := s.ShortPut.Greeks.Delta
	if d < p.CreditDeltaMin || d > p.CreditDeltaMax {
		c.fail(fmt.Sprintf("short put delta %.3f fuera de [%.2f, %.2f]", d, p.CreditDeltaMin, p.CreditDeltaMax))
	}
	if s.Net.Theta <= p.CreditMinTheta {
		c.fail(fmt.Sprintf("theta %.3f <= %.2f", s.Net.Theta, p.CreditMinTheta))
	}
	if s.ShortPut.IVPercentile <= p.CreditMinIVPct {
		c.fail(fmt.Sprintf("IV percentile %.1f <= %.0f", s.ShortPut.IVPercentile, p.CreditMinIVPct))
	}
	if math.Abs(s.Net.Gamma) >= p.MaxGamma {
		c.fail(fmt.Sprintf("gamma %.4f >= %.2f", s.Net.Gamma, p.MaxGamma))
	}
	if s.Days < p.CreditDTEMin || s.Days > p.CreditDTEMax {
		c.fail(fmt.Sprintf("DTE %d fuera de [%d, %d]", s.Days, p.CreditDTEMin, p.CreditDTEMax))
	}
	if s.StrikeWidth < p.WidthMin || s.StrikeWidth > p.WidthMax {
		c.fail(fmt.Sprintf("width %.2f fuera de [%.0f, %.0f]", s.StrikeWidth, p.WidthMin, p.WidthMax))
	}
	if ratio := s.PremiumWidthRatio(); ratio < p.MinPremiumWidthPct {
		c.fail(fmt.Sprintf("prima/width %.1f%% < %.0f%%", ratio, p.MinPremiumWidthPct))
	}

	return c
}

// QualityScore pondera PoP, eficiencia de prima, theta y gamma inverso.
func (s *CreditPutSpread) QualityScore() float64 {
	score := s.Prob * 0.4
	score += math.Min(s.PremiumWidthRatio()/25*100, 100) * 0.3
	score += math.Min(s.Net.Theta/0.10*100, 100) * 0.2
	score += math.Max(0, (0.05-math.Abs(s.Net.Gamma))/0.05*100) * 0.1
	return score
}

// DebitCallSpread es un bull call spread: long call abajo, short call arriba.
type DebitCallSpread struct {
	Sym       string
	LongCall  OptionQuote
	ShortCall OptionQuote

	StrikeWidth float64
	NetDebit    float64 // débito neto pagado
	Profit      float64 // = StrikeWidth - NetDebit
	Loss        float64 // = NetDebit
	BreakevenPx float64
	Net         Greeks
	Prob        float64
	Days        int
}

// NewDebitCallSpread construye el spread y deriva todas sus métricas.
func NewDebitCallSpread(symbol string, longCall, shortCall OptionQuote, netDebit float64) *DebitCallSpread {
	width := shortCall.Strike - longCall.Strike
	s := &DebitCallSpread{
		Sym:         symbol,
		LongCall:    longCall,
		ShortCall:   shortCall,
		StrikeWidth: width,
		NetDebit:    netDebit,
		Profit:      width - netDebit,
		Loss:        netDebit,
		BreakevenPx: longCall.Strike + netDebit,
		Days:        longCall.DTE,
	}

	s.Net = netSpreadGreeks(longCall.Greeks, shortCall.Greeks)

	// PoP desde el delta del long call (pata que controla).
	s.Prob = longCall.Greeks.Delta * 100
	return s
}

func (s *DebitCallSpread) Symbol() string      { return s.Sym }
func (s *DebitCallSpread) Type() SpreadType    { return SpreadDebitCall }
func (s *DebitCallSpread) Width() float64      { return s.StrikeWidth }
func (s *DebitCallSpread) EntryPrice() float64 { return s.NetDebit }
func (s *DebitCallSpread) MaxProfit() float64  { return s.Profit }
func (s *DebitCallSpread) MaxLoss() float64    { return s.Loss }
func (s *DebitCallSpread) Breakeven() float64  { return s.BreakevenPx }
func (s *DebitCallSpread) NetGreeks() Greeks   { return s.Net }
func (s *DebitCallSpread) PoP() float64        { return s.Prob }
func (s *DebitCallSpread) DTE() int            { return s.Days }
func (s *DebitCallSpread) Legs() (short, long OptionQuote) {
	return s.ShortCall, s.LongCall
}

// RewardRiskRatio devuelve max profit / max loss.
func (s *DebitCallSpread) RewardRiskRatio() float64 {
	if s.Loss <= 0 {
		return 0
	}
	return s.Profit / s.Loss
}

// Qualify chequea el predicado completo de la familia debit.
func (s *DebitCallSpread) Qualify(p SpreadParams) CheckResult {
	c := newCheck()

	d := s.LongCall.Greeks.Delta
	if d < p.DebitDeltaMin || d > p.DebitDeltaMax {
		c.fail(fmt.Sprintf("long call delta %.3f fuera de [%.2f, %.2f]", d, p.DebitDeltaMin, p.DebitDeltaMax))
	}
	if s.Net.Theta < p.DebitMinTheta {
		c.fail(fmt.Sprintf("theta %.3f demasiado negativo (< %.2f)", s.Net.Theta, p.DebitMinTheta))
	}
	pct := s.LongCall.IVPercentile
	if pct < p.DebitIVPctMin || pct > p.DebitIVPctMax {
		c.fail(fmt.Sprintf("IV percentile %.1f fuera de [%.0f, %.0f]", pct, p.DebitIVPctMin, p.DebitIVPctMax))
	}
	if math.Abs(s.Net.Gamma) >= p.MaxGamma {
		c.fail(fmt.Sprintf("gamma %.4f >= %.2f", s.Net.Gamma, p.MaxGamma))
	}
	if s.Days < p.DebitDTEMin || s.Days > p.DebitDTEMax {
		c.fail(fmt.Sprintf("DTE %d fuera de [%d, %d]", s.Days, p.DebitDTEMin, p.DebitDTEMax))
	}
	if s.StrikeWidth < p.WidthMin || s.StrikeWidth > p.WidthMax {
		c.fail(fmt.Sprintf("width %.2f fuera de [%.0f, %.0f]", s.StrikeWidth, p.WidthMin, p.WidthMax))
	}
	if rr := s.RewardRiskRatio(); rr < p.MinRewardRisk {
		c.fail(fmt.Sprintf("reward/risk %.2f < %.1f", rr, p.MinRewardRisk))
	}

	return c
}

// QualityScore pondera PoP, reward/risk, theta aceptable y gamma inverso.
func (s *DebitCallSpread) QualityScore() float64 {
	score := s.Prob * 0.4
	score += math.Min(s.RewardRiskRatio()/3*100, 100) * 0.3
	score += math.Max(0, (0.03+s.Net.Theta)/0.03*100) * 0.2
	score += math.Max(0, (0.05-math.Abs(s.Net.Gamma))/0.05*100) * 0.1
	return score
}

// BuildCreditPutSpreads enumera los bull put spreads admisibles de una
// expiración. quotes debe contener solo puts de esa expiración.
func BuildCreditPutSpreads(symbol string, quotes []OptionQuote, spot float64, p SpreadParams) []*CreditPutSpread {
	var spreads []*CreditPutSpread

	// Pre-filtro por delta: deja un puñado de shorts candidatos.
	for _, short := range quotes {
		d := short.Greeks.Delta
		if d < p.CreditDeltaMin || d > p.CreditDeltaMax {
			continue
		}
		if short.Strike >= spot || !short.HasMarket() {
			continue // el short debe ser OTM y tener mercado
		}

		for _, long := range quotes {
			gap := short.Strike - long.Strike
			if gap < p.WidthMin || gap > p.WidthMax || !long.HasMarket() {
				continue
			}

			netPremium := short.Mid() - long.Mid()
			if netPremium <= 0 {
				continue // sin compensación por el riesgo asumido
			}

			spreads = append(spreads, NewCreditPutSpread(symbol, short, long, netPremium))
		}
	}

	return spreads
}

// BuildDebitCallSpreads enumera los bull call spreads admisibles de una
// expiración. quotes debe contener solo calls de esa expiración.
func BuildDebitCallSpreads(symbol string, quotes []OptionQuote, spot float64, p SpreadParams) []*DebitCallSpread {
	var spreads []*DebitCallSpread

	for _, long := range quotes {
		d := long.Greeks.Delta
		if d < p.DebitDeltaMin || d > p.DebitDeltaMax {
			continue
		}
		if long.Strike > spot*1.05 || !long.HasMarket() {
			continue // ATM a ligeramente ITM
		}

		for _, short := range quotes {
			gap := short.Strike - long.Strike
			if gap < p.WidthMin || gap > p.WidthMax || !short.HasMarket() {
				continue
			}

			netDebit := long.Mid() - short.Mid()
			if netDebit <= 0 {
				continue
			}

			spreads = append(spreads, NewDebitCallSpread(symbol, long, short, netDebit))
		}
	}

	return spreads
}

// netSpreadGreeks combina los Greeks de las dos patas: la pata comprada suma,
// la vendida resta. Vale para ambas familias (long - short).
func netSpreadGreeks(long, short Greeks) Greeks {
	return Greeks{
		Delta: long.Delta - short.Delta,
		Gamma: long.Gamma - short.Gamma,
		Theta: long.Theta - short.Theta,
		Vega:  long.Vega - short.Vega,
		Rho:   long.Rho - short.Rho,
	}
}
