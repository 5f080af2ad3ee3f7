package scanner

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// candidateScore es el orden de la cola de riesgo: pondera la calidad
// del spread 0.5, la fuerza de reversión 0.3 y el score de valor 0.2.
// Las capas que cualificaron el símbolo deciden quién consume cupo antes.
func candidateScore(c candidate) float64 {
	return 0.5*c.spreadScore + 0.3*c.reversionScore + 0.2*c.valueScore
}

// riskPass es la capa 4: recorre los candidatos en orden de calidad y
// convierte en señal solo los que pasan EV, tamaño de posición y cupos de
// cartera/sector. Los cupos se llevan sobre un Portfolio sembrado con las
// posiciones abiertas; cada señal aceptada entra como trade provisional
// para que consuma cupo de cartera y de sector. Secuencial a propósito.
func (s *Scanner) riskPass(candidates []candidate, open []*domain.Trade, pairSpread float64) []domain.TradeSignal {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidateScore(candidates[i]), candidateScore(candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i].spread.Symbol() < candidates[j].spread.Symbol()
	})

	pf := &domain.Portfolio{
		TotalCapital:       s.cfg.Capital,
		MaxPositionSizePct: s.cfg.MaxPositionSizePct,
		MaxPositions:       s.cfg.MaxPositions,
		MaxSectorPositions: s.cfg.MaxSectorPositions,
		OpenTrades:         open,
	}
	pf.RecomputeMetrics()

	var signals []domain.TradeSignal
	for _, c := range candidates {
		sp := c.spread

		if len(pf.OpenTrades) >= pf.MaxPositions {
			slog.Debug("risk: portfolio full", "symbol", sp.Symbol())
			break
		}

		var ev domain.EVMetrics
		if sp.Type() == domain.SpreadCreditPut {
			ev = domain.CreditSpreadEV(sp.EntryPrice(), sp.MaxLoss(), sp.PoP())
		} else {
			ev = domain.DebitSpreadEV(sp.MaxProfit(), sp.EntryPrice(), sp.PoP())
		}
		if !domain.MeetsEVThreshold(ev, s.cfg.EVThreshold) {
			slog.Debug("risk: EV below threshold",
				"symbol", sp.Symbol(),
				"ev_pct", fmt.Sprintf("%.1f", ev.EVPercent),
			)
			continue
		}

		capitalAtRisk := sp.MaxLoss() * domain.ContractMultiplier
		if !pf.CanAdd(capitalAtRisk) {
			slog.Debug("risk: position too large",
				"symbol", sp.Symbol(),
				"capital_at_risk", capitalAtRisk,
				"available", pf.AvailableCapital(),
			)
			continue
		}

		if pf.SectorExposure()[c.fund.Sector] >= pf.MaxSectorPositions {
			slog.Debug("risk: sector cap reached", "symbol", sp.Symbol(), "sector", c.fund.Sector)
			continue
		}

		tp, sl := exitLevels(sp)

		sig := domain.TradeSignal{
			ID:     signalID(sp.Symbol(), s.now()),
			Symbol: sp.Symbol(),
			Sector: c.fund.Sector,

			Spread: sp,

			ExpectedValue: ev.ExpectedValue,
			EVPercent:     ev.EVPercent,
			PoP:           sp.PoP(),

			CapitalAtRisk: capitalAtRisk,
			KellyFraction: domain.KellyFraction(sp.PoP()/100, ev.WinAmount, ev.LossAmount),

			TakeProfit: tp,
			StopLoss:   sl,

			PairSpreadAtEntry: pairSpread,
			Provenance: domain.LayerProvenance{
				Fundamentals:  true,
				MeanReversion: true,
				Greeks:        true,
				Risk:          true,
			},
			EntryNotes: entryNotes(c),

			CreatedAt: s.now(),
		}

		// Trade provisional: consume cupo de cartera y de sector para
		// las señales que vienen detrás en el mismo ciclo.
		if !pf.AddTrade(provisionalTrade(sig)) {
			slog.Debug("risk: portfolio rejected trade", "symbol", sp.Symbol())
			continue
		}
		signals = append(signals, sig)
	}

	rankSignals(signals)
	return signals
}

// simulatedTrades es el número de trades de la simulación Monte Carlo
// del outlook.
const simulatedTrades = 1000

// portfolioOutlook agrega las señales del ciclo en las métricas de cartera
// del reporte. La simulación usa el PoP medio como win rate y los niveles
// medios de take-profit y stop-loss como montos; el rng se siembra con el
// inicio del ciclo para que el mismo reporte sea reproducible.
func (s *Scanner) portfolioOutlook(signals []domain.TradeSignal, startedAt time.Time) PortfolioOutlook {
	if len(signals) == 0 {
		return PortfolioOutlook{}
	}

	out := PortfolioOutlook{Positions: len(signals)}

	var sumPoP, sumEV, sumTP, sumSL float64
	evPercents := make([]float64, len(signals))
	for i, sig := range signals {
		out.CapitalAtRisk += sig.CapitalAtRisk
		out.ExpectedProfit += sig.CapitalAtRisk * sig.EVPercent / 100
		sumPoP += sig.PoP
		sumEV += sig.EVPercent
		sumTP += sig.TakeProfit
		sumSL += sig.StopLoss
		evPercents[i] = sig.EVPercent
	}

	n := float64(len(signals))
	out.AvgPoP = sumPoP / n
	out.AvgEVPercent = sumEV / n
	if s.cfg.Capital > 0 {
		out.UtilizationPct = out.CapitalAtRisk / s.cfg.Capital * 100
	}

	if stdDev, err := stats.StandardDeviation(evPercents); err == nil {
		out.Sharpe = domain.SharpeRatio(out.AvgEVPercent, stdDev, s.cfg.RiskFreeRate*100)
	}

	rng := rand.New(rand.NewSource(startedAt.UnixNano()))
	out.Simulation = domain.SimulateTrades(out.AvgPoP, sumTP/n, sumSL/n, s.cfg.Capital, simulatedTrades, rng)

	return out
}

// provisionalTrade proyecta una señal aceptada a la posición que abriría,
// un contrato por señal.
func provisionalTrade(sig domain.TradeSignal) *domain.Trade {
	return &domain.Trade{
		ID:            sig.ID,
		Symbol:        sig.Symbol,
		Sector:        sig.Sector,
		SpreadType:    sig.Spread.Type(),
		Quantity:      1,
		EntryDate:     sig.CreatedAt,
		EntryPrice:    sig.Spread.EntryPrice(),
		StopLoss:      sig.StopLoss,
		TakeProfit:    sig.TakeProfit,
		CapitalAtRisk: sig.CapitalAtRisk,
		Status:        domain.TradeStatusPending,
		Outcome:       domain.OutcomePending,
		ExpectedValue: sig.ExpectedValue,
		PoP:           sig.PoP,
		Notes:         sig.EntryNotes,
	}
}

// signalID genera un ID legible: símbolo + timestamp + sufijo uuid.
func signalID(symbol string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", symbol, at.Format("20060102_150405"), uuid.New().String()[:8])
}

// exitLevels fija take-profit y stop-loss en dólares por contrato.
// Credit: TP al 50% del beneficio máximo, SL al 200% de la prima cobrada.
// Debit: TP al 50% del beneficio máximo, SL al 50% del width.
func exitLevels(sp domain.VerticalSpread) (tp, sl float64) {
	tp = 0.5 * sp.MaxProfit() * domain.ContractMultiplier
	if sp.Type() == domain.SpreadCreditPut {
		sl = 2 * sp.EntryPrice() * domain.ContractMultiplier
	} else {
		sl = 0.5 * sp.Width() * domain.ContractMultiplier
	}
	return tp, sl
}

// entryNotes resume por qué entró la señal, para diagnóstico posterior.
func entryNotes(c candidate) string {
	short, long := c.spread.Legs()
	return fmt.Sprintf(
		"P/E %.1f, ROE %.1f%%, D/E %.2f | RSI %.1f, vol %.1fx, 52w-low +%.1f%% | %s %.0f/%.0f DTE %d, IV pct %.0f",
		c.fund.PERatio, c.fund.ROE, c.fund.DebtToEquity,
		c.tech.RSI, c.tech.VolumeRatio, c.tech.DistFrom52WLow,
		c.spread.Type(), short.Strike, long.Strike, c.spread.DTE(), short.IVPercentile,
	)
}
