package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cadena sintética de puts para una expiración a 35 días, spot 100.
func testPutChain() []OptionQuote {
	return []OptionQuote{
		{
			Symbol: "JPM", Strike: 95, Type: OptionPut,
			Bid: 1.20, Ask: 1.30, // mid 1.25
			Greeks:       Greeks{Delta: -0.18, Gamma: 0.02, Theta: -0.08, Vega: 0.10},
			ImpliedVol:   0.32,
			IVPercentile: 75,
			DTE:          35,
		},
		{
			Symbol: "JPM", Strike: 90, Type: OptionPut,
			Bid: 0.45, Ask: 0.55, // mid 0.50
			Greeks:       Greeks{Delta: -0.08, Gamma: 0.01, Theta: -0.02, Vega: 0.06},
			ImpliedVol:   0.35,
			IVPercentile: 78,
			DTE:          35,
		},
		{
			Symbol: "JPM", Strike: 85, Type: OptionPut,
			Bid: 0.20, Ask: 0.30, // mid 0.25
			Greeks:       Greeks{Delta: -0.04, Gamma: 0.005, Theta: -0.01, Vega: 0.04},
			ImpliedVol:   0.38,
			IVPercentile: 80,
			DTE:          35,
		},
	}
}

func TestNewCreditPutSpread_Metrics(t *testing.T) {
	chain := testPutChain()
	short, long := chain[0], chain[1]

	// prima neta = 1.25 - 0.50 = 0.75
	s := NewCreditPutSpread("JPM", short, long, short.Mid()-long.Mid())

	assert.InDelta(t, 5.0, s.Width(), 1e-9)
	assert.InDelta(t, 0.75, s.EntryPrice(), 1e-9)
	assert.InDelta(t, 0.75, s.MaxProfit(), 1e-9)
	assert.InDelta(t, 4.25, s.MaxLoss(), 1e-9) // width - prima
	assert.InDelta(t, 94.25, s.Breakeven(), 1e-9)
	assert.InDelta(t, 82.0, s.PoP(), 1e-9) // (1 - 0.18) × 100
	assert.InDelta(t, 15.0, s.PremiumWidthRatio(), 1e-9)

	// Greeks netos = long - short: theta -0.02 - (-0.08) = +0.06
	assert.InDelta(t, 0.06, s.NetGreeks().Theta, 1e-9)
	assert.InDelta(t, -0.01, s.NetGreeks().Gamma, 1e-9)
	assert.InDelta(t, 0.10, s.NetGreeks().Delta, 1e-9)
}

func TestCreditPutSpread_QualifyPasses(t *testing.T) {
	chain := testPutChain()
	s := NewCreditPutSpread("JPM", chain[0], chain[1], 0.75)

	res := s.Qualify(DefaultSpreadParams())
	assert.True(t, res.Passed)
	assert.Empty(t, res.Failures)
}

func TestCreditPutSpread_QualifyFailsOnLowIV(t *testing.T) {
	chain := testPutChain()
	short := chain[0]
	short.IVPercentile = 40 // vender prima con IV barata no compensa

	s := NewCreditPutSpread("JPM", short, chain[1], 0.75)
	res := s.Qualify(DefaultSpreadParams())

	require.False(t, res.Passed)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "IV percentile")
}

func TestCreditPutSpread_QualifyAccumulatesFailures(t *testing.T) {
	chain := testPutChain()
	short := chain[0]
	short.Greeks.Delta = -0.35 // demasiado cerca del dinero
	short.DTE = 10             // demasiado corto

	s := NewCreditPutSpread("JPM", short, chain[1], 0.75)
	res := s.Qualify(DefaultSpreadParams())

	require.False(t, res.Passed)
	assert.GreaterOrEqual(t, len(res.Failures), 2)
}

func TestBuildCreditPutSpreads(t *testing.T) {
	chain := testPutChain()

	// Short candidato único: 95 (delta -0.18). Longs válidos: 90 (gap 5)
	// y 85 (gap 10). Ambos con prima neta positiva.
	spreads := BuildCreditPutSpreads("JPM", chain, 100, DefaultSpreadParams())
	require.Len(t, spreads, 2)

	for _, s := range spreads {
		assert.Greater(t, s.EntryPrice(), 0.0)
		assert.Equal(t, 95.0, s.ShortPut.Strike)
	}
}

func TestBuildCreditPutSpreads_SkipsNonPositivePremium(t *testing.T) {
	chain := testPutChain()
	// Long más caro que el short: la prima neta sale negativa.
	chain[1].Bid = 1.50
	chain[1].Ask = 1.60
	chain[2].Bid = 1.50
	chain[2].Ask = 1.60

	spreads := BuildCreditPutSpreads("JPM", chain, 100, DefaultSpreadParams())
	assert.Empty(t, spreads)
}

func TestBuildCreditPutSpreads_SkipsNoMarket(t *testing.T) {
	chain := testPutChain()
	chain[0].Bid = 0 // short sin bid → sin mercado

	spreads := BuildCreditPutSpreads("JPM", chain, 100, DefaultSpreadParams())
	assert.Empty(t, spreads)
}

// Cadena sintética de calls a 75 días, spot 102.
func testCallChain() []OptionQuote {
	return []OptionQuote{
		{
			Symbol: "JPM", Strike: 100, Type: OptionCall,
			Bid: 2.40, Ask: 2.60, // mid 2.50
			Greeks:       Greeks{Delta: 0.65, Gamma: 0.02, Theta: -0.040, Vega: 0.15},
			ImpliedVol:   0.22,
			IVPercentile: 40,
			DTE:          75,
		},
		{
			Symbol: "JPM", Strike: 105, Type: OptionCall,
			Bid: 0.90, Ask: 1.10, // mid 1.00
			Greeks:       Greeks{Delta: 0.35, Gamma: 0.015, Theta: -0.025, Vega: 0.12},
			ImpliedVol:   0.24,
			IVPercentile: 42,
			DTE:          75,
		},
	}
}

func TestNewDebitCallSpread_Metrics(t *testing.T) {
	chain := testCallChain()
	long, short := chain[0], chain[1]

	// débito neto = 2.50 - 1.00 = 1.50
	s := NewDebitCallSpread("JPM", long, short, long.Mid()-short.Mid())

	assert.InDelta(t, 5.0, s.Width(), 1e-9)
	assert.InDelta(t, 1.50, s.EntryPrice(), 1e-9)
	assert.InDelta(t, 3.50, s.MaxProfit(), 1e-9) // width - débito
	assert.InDelta(t, 1.50, s.MaxLoss(), 1e-9)
	assert.InDelta(t, 101.50, s.Breakeven(), 1e-9)
	assert.InDelta(t, 65.0, s.PoP(), 1e-9)
	assert.InDelta(t, 3.50/1.50, s.RewardRiskRatio(), 1e-9)

	// theta neto = -0.040 - (-0.025) = -0.015, dentro de lo aceptable
	assert.InDelta(t, -0.015, s.NetGreeks().Theta, 1e-9)
}

func TestDebitCallSpread_QualifyPasses(t *testing.T) {
	chain := testCallChain()
	s := NewDebitCallSpread("JPM", chain[0], chain[1], 1.50)

	res := s.Qualify(DefaultSpreadParams())
	assert.True(t, res.Passed)
}

func TestDebitCallSpread_QualifyFailsOnRewardRisk(t *testing.T) {
	chain := testCallChain()
	// Débito caro: profit 5 - 3 = 2, loss 3, RR 0.67 < 2.0.
	s := NewDebitCallSpread("JPM", chain[0], chain[1], 3.0)

	res := s.Qualify(DefaultSpreadParams())
	require.False(t, res.Passed)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "reward/risk")
}

func TestBuildDebitCallSpreads(t *testing.T) {
	chain := testCallChain()

	spreads := BuildDebitCallSpreads("JPM", chain, 102, DefaultSpreadParams())
	require.Len(t, spreads, 1)
	assert.Equal(t, 100.0, spreads[0].LongCall.Strike)
	assert.Equal(t, 105.0, spreads[0].ShortCall.Strike)
	assert.InDelta(t, 1.50, spreads[0].EntryPrice(), 1e-9)
}

func TestBuildDebitCallSpreads_SkipsDeepITM(t *testing.T) {
	chain := testCallChain()
	// Spot muy por debajo: el long call 100 queda demasiado ITM (> spot×1.05).
	spreads := BuildDebitCallSpreads("JPM", chain, 90, DefaultSpreadParams())
	assert.Empty(t, spreads)
}

func TestQualityScore_RewardsHigherPoP(t *testing.T) {
	chain := testPutChain()

	a := NewCreditPutSpread("JPM", chain[0], chain[1], 0.75)

	weaker := chain[0]
	weaker.Greeks.Delta = -0.30 // menos prob de quedar OTM
	b := NewCreditPutSpread("JPM", weaker, chain[1], 0.75)

	assert.Greater(t, a.QualityScore(), b.QualityScore())
}
