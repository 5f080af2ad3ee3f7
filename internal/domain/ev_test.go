package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditSpreadEV_NegativeEVRejected(t *testing.T) {
	// Prima 0.25, riesgo 4.75, PoP 82%:
	// EV = 0.82×0.25 - 0.18×4.75 = 0.205 - 0.855 = -0.65
	m := CreditSpreadEV(0.25, 4.75, 82)

	assert.InDelta(t, -0.65, m.ExpectedValue, 1e-9)
	assert.InDelta(t, -0.65/4.75*100, m.EVPercent, 1e-9) // ≈ -13.7%
	assert.False(t, MeetsEVThreshold(m, 0.20))
}

func TestCreditSpreadEV_PositiveEV(t *testing.T) {
	// Prima 1.50, riesgo 3.50, PoP 82%:
	// EV = 0.82×1.50 - 0.18×3.50 = 1.23 - 0.63 = 0.60 → 17.1% del riesgo
	m := CreditSpreadEV(1.50, 3.50, 82)

	assert.InDelta(t, 0.60, m.ExpectedValue, 1e-9)
	assert.InDelta(t, 0.60/3.50*100, m.EVPercent, 1e-9)
	assert.True(t, MeetsEVThreshold(m, 0.15))
	assert.False(t, MeetsEVThreshold(m, 0.20))
	assert.InDelta(t, 1.23/0.63, m.ProfitFactor, 1e-9)
}

func TestDebitSpreadEV(t *testing.T) {
	// Profit 3.50, débito 1.50, PoP 65%:
	// EV = 0.65×3.50 - 0.35×1.50 = 2.275 - 0.525 = 1.75 → 116.7% del riesgo
	m := DebitSpreadEV(3.50, 1.50, 65)

	assert.InDelta(t, 1.75, m.ExpectedValue, 1e-9)
	assert.InDelta(t, 1.75/1.50*100, m.EVPercent, 1e-9)
	assert.True(t, MeetsEVThreshold(m, 0.20))
}

func TestSpreadEV_CertainWin(t *testing.T) {
	m := CreditSpreadEV(1.0, 4.0, 100)
	assert.InDelta(t, 1.0, m.ExpectedValue, 1e-9)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
}

func TestKellyFraction(t *testing.T) {
	// p=0.82, win=12.5, loss=50: b=0.25
	// kelly = (0.25×0.82 - 0.18) / 0.25 = 0.10 → quarter = 0.025
	f := KellyFraction(0.82, 12.5, 50)
	assert.InDelta(t, 0.025, f, 1e-9)
	assert.LessOrEqual(t, f, 0.05)

	// Kelly negativo → no operar.
	assert.Equal(t, 0.0, KellyFraction(0.40, 12.5, 50))

	// Edge muy grande queda capado al 5%.
	assert.Equal(t, 0.05, KellyFraction(0.95, 100, 10))

	// Sin pérdida definida no hay fracción.
	assert.Equal(t, 0.0, KellyFraction(0.80, 10, 0))
}

func TestSharpeRatio(t *testing.T) {
	assert.InDelta(t, 1.25, SharpeRatio(0.30, 0.20, 0.05), 1e-9)
	assert.Equal(t, 0.0, SharpeRatio(0.30, 0, 0.05))
}

func TestBreakevenWinRate(t *testing.T) {
	// Win 1, loss 4: necesita ganar el 80% para empatar.
	assert.InDelta(t, 80.0, BreakevenWinRate(1, 4), 1e-9)
	assert.InDelta(t, 50.0, BreakevenWinRate(2, 2), 1e-9)
	assert.Equal(t, 50.0, BreakevenWinRate(0, 0))
}

func TestSimulateTrades_AllWins(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// Win rate 100%: capital final = inicial + n×avgWin, drawdown 0.
	res := SimulateTrades(100, 50, 200, 10000, 100, rng)

	assert.InDelta(t, 10000+100*50, res.EndingCapital, 1e-9)
	assert.Equal(t, 100, res.Wins)
	assert.Equal(t, 0, res.Losses)
	assert.Equal(t, 100.0, res.ActualWinRate)
	assert.Equal(t, 0.0, res.MaxDrawdown.Max)
}

func TestSimulateTrades_AllLosses(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	res := SimulateTrades(0, 50, 100, 10000, 20, rng)

	assert.InDelta(t, 10000-20*100, res.EndingCapital, 1e-9)
	assert.Equal(t, 20, res.Losses)
	assert.InDelta(t, 2000, res.MaxDrawdown.Max, 1e-9)
	assert.InDelta(t, 20.0, res.MaxDrawdown.MaxPercent, 1e-9)
}

func TestSimulateTrades_Deterministic(t *testing.T) {
	// Misma semilla → mismo resultado: la simulación es reproducible.
	a := SimulateTrades(70, 50, 100, 10000, 500, rand.New(rand.NewSource(7)))
	b := SimulateTrades(70, 50, 100, 10000, 500, rand.New(rand.NewSource(7)))

	assert.Equal(t, a, b)
	assert.Equal(t, 500, a.Wins+a.Losses)
}
