package domain

// trade.go — señales de trade y bookkeeping de posiciones.
//
// El P&L cambia de signo según la familia: un credit spread gana cuando el
// precio del spread baja (cerrar cuesta menos que la prima cobrada); un
// debit spread gana cuando sube.

import "time"

// ContractMultiplier es el multiplicador estándar de contratos de equity.
const ContractMultiplier = 100

// TradeStatus es el ciclo de vida de una posición.
type TradeStatus string

const (
	TradeStatusPending TradeStatus = "PENDING"
	TradeStatusOpen    TradeStatus = "OPEN"
	TradeStatusClosed  TradeStatus = "CLOSED"
	TradeStatusExpired TradeStatus = "EXPIRED"
)

// TradeOutcome es el resultado final de un trade cerrado.
type TradeOutcome string

const (
	OutcomeWin       TradeOutcome = "WIN"
	OutcomeLoss      TradeOutcome = "LOSS"
	OutcomeBreakeven TradeOutcome = "BREAKEVEN"
	OutcomePending   TradeOutcome = "PENDING"
)

// LayerProvenance registra qué capas pasó el candidato. Una señal solo se
// crea con las cuatro en true; el campo queda para auditoría del histórico.
type LayerProvenance struct {
	Fundamentals  bool
	MeanReversion bool
	Greeks        bool
	Risk          bool
}

// TradeSignal es la salida final del pipeline: un spread aceptado con
// sizing, stop y target cuantificados. Read-only para los rankers.
type TradeSignal struct {
	ID     string
	Symbol string
	Sector string

	Spread VerticalSpread

	ExpectedValue float64 // EV en dólares por contrato
	EVPercent     float64
	PoP           float64 // 0-100

	CapitalAtRisk float64 // dólares, ya multiplicado por contrato
	KellyFraction float64 // consultivo

	TakeProfit float64 // dólares
	StopLoss   float64 // dólares

	PairSpreadAtEntry float64
	Provenance        LayerProvenance
	EntryNotes        string

	CreatedAt time.Time
}

// TPSLRatio devuelve el ratio take-profit / stop-loss usado en el ranking.
func (s TradeSignal) TPSLRatio() float64 {
	if s.StopLoss <= 0 {
		return 0
	}
	return s.TakeProfit / s.StopLoss
}

// SignalQualityScore pondera EV 0.5, PoP 0.3 y ratio TP/SL 0.2 para el
// orden final de la lista de señales.
func SignalQualityScore(s TradeSignal) float64 {
	score := min100(s.EVPercent) * 0.5
	score += s.PoP * 0.3
	score += min100(s.TPSLRatio()/2*100) * 0.2
	return score
}

// Trade es una posición abierta desde una señal.
type Trade struct {
	ID         string
	Symbol     string
	Sector     string
	SpreadType SpreadType

	Quantity   int
	EntryDate  time.Time
	EntryPrice float64 // crédito/débito neto al entrar

	ExitDate  *time.Time
	ExitPrice float64

	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
	PnLPercent    float64

	StopLoss      float64
	TakeProfit    float64
	TakeProfitHit bool
	StopLossHit   bool

	CapitalAtRisk float64

	Status  TradeStatus
	Outcome TradeOutcome

	ExpectedValue float64
	PoP           float64

	Notes string
}

// UpdatePnL recalcula el P&L no realizado con el precio actual del spread.
func (t *Trade) UpdatePnL(currentSpreadPrice float64) {
	t.CurrentPrice = currentSpreadPrice

	if t.SpreadType == SpreadCreditPut {
		// Credit: ganamos cuando cerrar cuesta menos que la prima cobrada.
		t.UnrealizedPnL = (t.EntryPrice - currentSpreadPrice) * float64(t.Quantity) * ContractMultiplier
	} else {
		// Debit: ganamos cuando el spread vale más que lo pagado.
		t.UnrealizedPnL = (currentSpreadPrice - t.EntryPrice) * float64(t.Quantity) * ContractMultiplier
	}

	if t.CapitalAtRisk > 0 {
		t.PnLPercent = t.UnrealizedPnL / t.CapitalAtRisk * 100
	}

	if t.TakeProfit > 0 && t.UnrealizedPnL >= t.TakeProfit {
		t.TakeProfitHit = true
	}
	if t.StopLoss > 0 && t.UnrealizedPnL <= -t.StopLoss {
		t.StopLossHit = true
	}
}

// Close cierra la posición al precio dado y liquida el P&L realizado.
func (t *Trade) Close(exitPrice float64, at time.Time) {
	t.ExitDate = &at
	t.ExitPrice = exitPrice
	t.Status = TradeStatusClosed

	if t.SpreadType == SpreadCreditPut {
		t.RealizedPnL = (t.EntryPrice - exitPrice) * float64(t.Quantity) * ContractMultiplier
	} else {
		t.RealizedPnL = (exitPrice - t.EntryPrice) * float64(t.Quantity) * ContractMultiplier
	}

	if t.CapitalAtRisk > 0 {
		t.PnLPercent = t.RealizedPnL / t.CapitalAtRisk * 100
	}

	switch {
	case t.RealizedPnL > 0:
		t.Outcome = OutcomeWin
	case t.RealizedPnL < 0:
		t.Outcome = OutcomeLoss
	default:
		t.Outcome = OutcomeBreakeven
	}
}

// DaysInTrade devuelve los días desde la entrada (hasta el cierre si aplica).
func (t *Trade) DaysInTrade(now time.Time) int {
	end := now
	if t.ExitDate != nil {
		end = *t.ExitDate
	}
	return int(end.Sub(t.EntryDate).Hours() / 24)
}

// Portfolio agrupa las posiciones y sus agregados.
// Los agregados se recomputan en un único paso explícito (RecomputeMetrics)
// después de cada mutación, nunca con updates incrementales dispersos.
type Portfolio struct {
	TotalCapital float64

	MaxPositionSizePct float64
	MaxPositions       int
	MaxSectorPositions int

	OpenTrades   []*Trade
	ClosedTrades []*Trade

	TotalRealizedPnL   float64
	TotalUnrealizedPnL float64
	WinCount           int
	LossCount          int
	WinRate            float64
	TotalReturnPct     float64
	CapitalAtRisk      float64
}

// CanAdd chequea la capacidad del portfolio para una nueva posición.
func (p *Portfolio) CanAdd(capitalAtRisk float64) bool {
	if len(p.OpenTrades) >= p.MaxPositions {
		return false
	}
	maxRisk := p.TotalCapital * p.MaxPositionSizePct / 100
	return capitalAtRisk <= maxRisk
}

// AddTrade abre una posición si hay capacidad.
func (p *Portfolio) AddTrade(t *Trade) bool {
	if !p.CanAdd(t.CapitalAtRisk) {
		return false
	}
	t.Status = TradeStatusOpen
	p.OpenTrades = append(p.OpenTrades, t)
	p.RecomputeMetrics()
	return true
}

// CloseTrade cierra una posición por ID al precio dado.
func (p *Portfolio) CloseTrade(id string, exitPrice float64, at time.Time) bool {
	for i, t := range p.OpenTrades {
		if t.ID != id {
			continue
		}
		t.Close(exitPrice, at)
		p.ClosedTrades = append(p.ClosedTrades, t)
		p.OpenTrades = append(p.OpenTrades[:i], p.OpenTrades[i+1:]...)
		p.RecomputeMetrics()
		return true
	}
	return false
}

// RecomputeMetrics deriva todos los agregados desde las colecciones.
func (p *Portfolio) RecomputeMetrics() {
	p.CapitalAtRisk = 0
	p.TotalUnrealizedPnL = 0
	for _, t := range p.OpenTrades {
		p.CapitalAtRisk += t.CapitalAtRisk
		p.TotalUnrealizedPnL += t.UnrealizedPnL
	}

	p.TotalRealizedPnL = 0
	p.WinCount, p.LossCount = 0, 0
	for _, t := range p.ClosedTrades {
		p.TotalRealizedPnL += t.RealizedPnL
		switch t.Outcome {
		case OutcomeWin:
			p.WinCount++
		case OutcomeLoss:
			p.LossCount++
		}
	}

	if total := p.WinCount + p.LossCount; total > 0 {
		p.WinRate = float64(p.WinCount) / float64(total) * 100
	}
	if p.TotalCapital > 0 {
		p.TotalReturnPct = (p.TotalRealizedPnL + p.TotalUnrealizedPnL) / p.TotalCapital * 100
	}
}

// SectorExposure cuenta posiciones abiertas por sector.
func (p *Portfolio) SectorExposure() map[string]int {
	counts := make(map[string]int)
	for _, t := range p.OpenTrades {
		if t.Sector != "" {
			counts[t.Sector]++
		}
	}
	return counts
}

// AvailableCapital devuelve el capital libre para nuevas posiciones.
func (p *Portfolio) AvailableCapital() float64 {
	return p.TotalCapital - p.CapitalAtRisk
}
