package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

// maxSpreadsPerSymbol limita cuántos spreads de un mismo subyacente
// llegan a la capa de riesgo: los mejores por calidad.
const maxSpreadsPerSymbol = 2

// candidate es un spread que pasó las tres primeras capas, con los
// snapshots que lo respaldan.
type candidate struct {
	fund   domain.FundamentalSnapshot
	tech   domain.TechnicalSnapshot
	spread domain.VerticalSpread

	// Los tres ejes del ranking: calidad del spread y fuerza de las
	// capas de valor y reversión que lo respaldan.
	spreadScore    float64
	valueScore     float64
	reversionScore float64
}

// symbolResult es la salida del análisis de un símbolo.
type symbolResult struct {
	symbol string

	noData             bool
	passedFundamentals bool
	passedTechnicals   bool

	candidates []candidate
}

// analyzeSymbol corre las capas 1-3 sobre un símbolo. Un criterio que no
// pasa no es un error: el símbolo simplemente queda fuera del ciclo.
// Datos incompletos del vendor marcan noData y el símbolo se excluye.
func (s *Scanner) analyzeSymbol(ctx context.Context, symbol string) symbolResult {
	res := symbolResult{symbol: symbol}

	fund, err := s.data.Fundamentals(ctx, symbol)
	if err != nil {
		return s.skipNoData(res, "fundamentals", err)
	}

	corr, err := s.data.Correlation(ctx, symbol, s.cfg.BenchmarkETF, s.cfg.Lookback)
	if err != nil {
		return s.skipNoData(res, "correlation", err)
	}
	fund.BenchmarkCorrelation = corr

	if check := domain.EvaluateFundamentals(fund, s.cfg.Fundamentals); !check.Passed {
		slog.Debug("fundamentals rejected", "symbol", symbol, "reasons", check.Failures)
		return res
	}
	res.passedFundamentals = true

	tech, err := s.data.Technicals(ctx, symbol)
	if err != nil {
		return s.skipNoData(res, "technicals", err)
	}

	if check := domain.EvaluateTechnicals(tech, s.cfg.Technicals); !check.Passed {
		slog.Debug("technicals rejected", "symbol", symbol, "reasons", check.Failures)
		return res
	}
	res.passedTechnicals = true

	spreads, err := s.buildSpreads(ctx, symbol, tech.Price)
	if err != nil {
		return s.skipNoData(res, "chains", err)
	}

	valueScore := domain.ValueScore(fund)
	reversionScore := domain.ReversionScore(tech)
	for _, sp := range spreads {
		res.candidates = append(res.candidates, candidate{
			fund:           fund,
			tech:           tech,
			spread:         sp,
			spreadScore:    sp.QualityScore(),
			valueScore:     valueScore,
			reversionScore: reversionScore,
		})
	}
	return res
}

// skipNoData marca el símbolo como excluido por datos incompletos. Solo
// ErrUnavailable baja a Debug; el resto se loguea como Warn porque puede
// indicar un problema real del vendor.
func (s *Scanner) skipNoData(res symbolResult, stage string, err error) symbolResult {
	res.noData = true
	if errors.Is(err, ports.ErrUnavailable) {
		slog.Debug("symbol skipped, no data", "symbol", res.symbol, "stage", stage)
	} else {
		slog.Warn("symbol skipped, fetch failed", "symbol", res.symbol, "stage", stage, "err", err)
	}
	return res
}

// buildSpreads construye y cualifica los spreads verticales del símbolo:
// expiraciones dentro de las ventanas DTE, Greeks recalculados por
// Black-Scholes sobre la IV del vendor, y Qualify sobre cada combinación.
func (s *Scanner) buildSpreads(ctx context.Context, symbol string, spot float64) ([]domain.VerticalSpread, error) {
	expirations, err := s.data.OptionExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := s.cfg.Spreads

	var qualified []domain.VerticalSpread
	for _, exp := range expirations {
		dte := domain.DaysToExpiration(exp, now)
		creditWindow := dte >= p.CreditDTEMin && dte <= p.CreditDTEMax
		debitWindow := dte >= p.DebitDTEMin && dte <= p.DebitDTEMax
		if !creditWindow && !debitWindow {
			continue
		}

		if creditWindow {
			chain, err := s.data.OptionChain(ctx, symbol, exp, domain.OptionPut)
			if err != nil {
				return nil, err
			}
			puts := s.prepareQuotes(chain, spot, now)
			for _, sp := range domain.BuildCreditPutSpreads(symbol, puts, spot, p) {
				if check := sp.Qualify(p); check.Passed {
					qualified = append(qualified, sp)
				}
			}
		}
		if debitWindow {
			chain, err := s.data.OptionChain(ctx, symbol, exp, domain.OptionCall)
			if err != nil {
				return nil, err
			}
			calls := s.prepareQuotes(chain, spot, now)
			for _, sp := range domain.BuildDebitCallSpreads(symbol, calls, spot, p) {
				if check := sp.Qualify(p); check.Passed {
					qualified = append(qualified, sp)
				}
			}
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].QualityScore() > qualified[j].QualityScore()
	})
	if len(qualified) > maxSpreadsPerSymbol {
		qualified = qualified[:maxSpreadsPerSymbol]
	}
	return qualified, nil
}

// prepareQuotes recalcula los Greeks de un lado de la cadena.
// Las quotes sin IV utilizable se descartan: sin IV no hay Greeks fiables.
// El IV percentile del vendor se respeta; si falta, se deriva del rank de
// la IV dentro de la propia cadena.
func (s *Scanner) prepareQuotes(chain []domain.OptionQuote, spot float64, now time.Time) []domain.OptionQuote {
	chainIVs := make([]float64, 0, len(chain))
	for _, q := range chain {
		if q.ImpliedVol > 0 {
			chainIVs = append(chainIVs, q.ImpliedVol)
		}
	}

	prepared := make([]domain.OptionQuote, 0, len(chain))
	for _, q := range chain {
		if q.ImpliedVol <= 0 {
			continue
		}

		years := domain.YearsToExpiration(q.Expiration, now)
		g, err := domain.ComputeGreeks(spot, q.Strike, years, s.cfg.RiskFreeRate, q.ImpliedVol, q.Type)
		if err != nil {
			continue
		}
		q.Greeks = g
		q.DTE = domain.DaysToExpiration(q.Expiration, now)

		if q.IVPercentile == 0 {
			q.IVPercentile = domain.IVPercentileRank(q.ImpliedVol, chainIVs)
		}

		prepared = append(prepared, q)
	}
	return prepared
}
