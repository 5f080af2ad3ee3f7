package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// riskCandidate arma un credit put spread 95/90 con prima 1.80: max loss
// 3.20, PoP 82 (delta -0.18), EV +28.1% — pasa el umbral del 20%.
func riskCandidate(symbol, sector string) candidate {
	short := domain.OptionQuote{
		Symbol: symbol, Strike: 95, Type: domain.OptionPut,
		Bid: 1.75, Ask: 1.85, IVPercentile: 75, DTE: 35,
		Greeks: domain.Greeks{Delta: -0.18, Theta: -0.08, Gamma: 0.03},
	}
	long := domain.OptionQuote{
		Symbol: symbol, Strike: 90, Type: domain.OptionPut,
		Bid: 0.01, Ask: 0.09, IVPercentile: 70, DTE: 35,
		Greeks: domain.Greeks{Delta: -0.05, Theta: -0.02, Gamma: 0.015},
	}
	sp := domain.NewCreditPutSpread(symbol, short, long, 1.80)

	fund := domain.FundamentalSnapshot{Symbol: symbol, Sector: sector, PERatio: 12, ROE: 15, DebtToEquity: 1.2}
	tech := domain.TechnicalSnapshot{Symbol: symbol, RSI: 36, VolumeRatio: 1.4, DistFrom52WLow: 6}

	return candidate{
		fund: fund,
		tech: tech,

		spread:         sp,
		spreadScore:    sp.QualityScore(),
		valueScore:     domain.ValueScore(fund),
		reversionScore: domain.ReversionScore(tech),
	}
}

func openTrade(id, sector string) *domain.Trade {
	return &domain.Trade{
		ID: id, Symbol: "X" + id, Sector: sector,
		Status: domain.TradeStatusOpen, EntryDate: testNow.Add(-48 * time.Hour),
	}
}

func TestRiskPass_AcceptsQualifiedCandidate(t *testing.T) {
	s := newTestScanner(testConfig(), testProvider())

	signals := s.riskPass([]candidate{riskCandidate("JPM", "Financials")}, nil, 9.2)

	require.Len(t, signals, 1)
	assert.Equal(t, "JPM", signals[0].Symbol)
	assert.InDelta(t, 320, signals[0].CapitalAtRisk, 0.1)
	assert.InDelta(t, 28.1, signals[0].EVPercent, 0.2)
	assert.InDelta(t, 9.2, signals[0].PairSpreadAtEntry, 0.001)
}

func TestRiskPass_SectorCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSectorPositions = 1
	s := newTestScanner(cfg, testProvider())

	candidates := []candidate{
		riskCandidate("JPM", "Financials"),
		riskCandidate("BAC", "Financials"),
		riskCandidate("JNJ", "Healthcare"),
	}

	signals := s.riskPass(candidates, nil, 9.0)

	require.Len(t, signals, 2)
	sectors := []string{signals[0].Sector, signals[1].Sector}
	assert.Contains(t, sectors, "Financials")
	assert.Contains(t, sectors, "Healthcare")
}

func TestRiskPass_SectorCapCountsOpenTrades(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSectorPositions = 1
	s := newTestScanner(cfg, testProvider())

	open := []*domain.Trade{openTrade("t1", "Financials")}

	signals := s.riskPass([]candidate{riskCandidate("JPM", "Financials")}, open, 9.0)
	assert.Empty(t, signals)
}

func TestRiskPass_PortfolioFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositions = 2
	s := newTestScanner(cfg, testProvider())

	open := []*domain.Trade{openTrade("t1", "Utilities"), openTrade("t2", "Industrials")}

	signals := s.riskPass([]candidate{riskCandidate("JPM", "Financials")}, open, 9.0)
	assert.Empty(t, signals)
}

func TestRiskPass_EVBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.EVThreshold = 0.50 // exige EV del 50%, el candidato ronda el 28%
	s := newTestScanner(cfg, testProvider())

	signals := s.riskPass([]candidate{riskCandidate("JPM", "Financials")}, nil, 9.0)
	assert.Empty(t, signals)
}

func TestRiskPass_PositionTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Capital = 1_000 // 5% → $50 máximo, el spread arriesga $320
	s := newTestScanner(cfg, testProvider())

	signals := s.riskPass([]candidate{riskCandidate("JPM", "Financials")}, nil, 9.0)
	assert.Empty(t, signals)
}

func TestRiskPass_OrdersByCompositeScore(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositions = 1 // un solo cupo: el orden decide quién entra
	s := newTestScanner(cfg, testProvider())

	// Mismo spread en ambos, pero PFE llega con un setup de reversión
	// mucho más débil: RSI lejos del centro, volumen plano, precio
	// alejado del mínimo. El cupo único debe ir al setup fuerte.
	weak := riskCandidate("PFE", "Healthcare")
	weak.tech = domain.TechnicalSnapshot{Symbol: "PFE", RSI: 44, VolumeRatio: 1.05, DistFrom52WLow: 9.5}
	weak.reversionScore = domain.ReversionScore(weak.tech)

	signals := s.riskPass([]candidate{weak, riskCandidate("JPM", "Financials")}, nil, 9.0)

	require.Len(t, signals, 1)
	assert.Equal(t, "JPM", signals[0].Symbol)
}

func TestPortfolioOutlook_AggregatesSignals(t *testing.T) {
	s := newTestScanner(testConfig(), testProvider())

	signals := s.riskPass([]candidate{
		riskCandidate("JPM", "Financials"),
		riskCandidate("JNJ", "Healthcare"),
	}, nil, 9.0)
	require.Len(t, signals, 2)

	out := s.portfolioOutlook(signals, testNow)

	assert.Equal(t, 2, out.Positions)
	assert.InDelta(t, 640, out.CapitalAtRisk, 0.1)
	assert.InDelta(t, 6.4, out.UtilizationPct, 0.01)
	// 2 × 320 × EV ~28.1% ≈ $180.
	assert.InDelta(t, 180, out.ExpectedProfit, 5)
	assert.InDelta(t, 82, out.AvgPoP, 0.5)
	assert.InDelta(t, 28.1, out.AvgEVPercent, 0.2)
	// Señales idénticas: sin dispersión de EV, Sharpe indefinido → 0.
	assert.Zero(t, out.Sharpe)

	sim := out.Simulation
	assert.Equal(t, 1000, sim.Wins+sim.Losses)
	assert.InDelta(t, out.AvgPoP, sim.ActualWinRate, 6)
	assert.InDelta(t, 10_000, sim.StartingCapital, 0.001)
}

func TestPortfolioOutlook_EmptyCycle(t *testing.T) {
	s := newTestScanner(testConfig(), testProvider())

	out := s.portfolioOutlook(nil, testNow)

	assert.Zero(t, out.Positions)
	assert.Zero(t, out.CapitalAtRisk)
	assert.Zero(t, out.Simulation.Wins+out.Simulation.Losses)
}

func TestExitLevels_CreditAndDebit(t *testing.T) {
	credit := riskCandidate("JPM", "Financials").spread
	tp, sl := exitLevels(credit)
	assert.InDelta(t, 90, tp, 0.001)  // 50% de 1.80 de profit máximo
	assert.InDelta(t, 360, sl, 0.001) // 200% de la prima cobrada

	long := domain.OptionQuote{
		Symbol: "MRK", Strike: 100, Type: domain.OptionCall,
		Bid: 4.40, Ask: 4.60, DTE: 70,
		Greeks: domain.Greeks{Delta: 0.65},
	}
	short := domain.OptionQuote{
		Symbol: "MRK", Strike: 105, Type: domain.OptionCall,
		Bid: 2.90, Ask: 3.10, DTE: 70,
		Greeks: domain.Greeks{Delta: 0.45},
	}
	debit := domain.NewDebitCallSpread("MRK", long, short, 1.50)

	tp, sl = exitLevels(debit)
	assert.InDelta(t, 175, tp, 0.001) // 50% del profit máximo (3.50)
	assert.InDelta(t, 250, sl, 0.001) // 50% del width de 5 puntos
}
