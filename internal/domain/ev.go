package domain

// ev.go — valor esperado, Kelly y simulación de capital.
//
// EV = (prob de ganar × ganancia) - (prob de perder × pérdida).
// Para credit spreads la ganancia es la prima y la pérdida el max loss;
// para debit spreads la ganancia es el max profit y la pérdida el débito.

import (
	"math"
	"math/rand"
)

// EVMetrics es el desglose del valor esperado de un spread.
type EVMetrics struct {
	ExpectedValue float64
	EVPercent     float64 // EV sobre capital en riesgo, en %
	WinAmount     float64
	LossAmount    float64
	WinProb       float64 // 0-1
	LossProb      float64 // 0-1
	ProfitFactor  float64
}

// CreditSpreadEV calcula el EV de un credit spread.
// pop es la probabilidad de beneficio en 0-100.
func CreditSpreadEV(premium, maxLoss, pop float64) EVMetrics {
	return spreadEV(premium, maxLoss, maxLoss, pop)
}

// DebitSpreadEV calcula el EV de un debit spread.
func DebitSpreadEV(maxProfit, debitPaid, pop float64) EVMetrics {
	return spreadEV(maxProfit, debitPaid, debitPaid, pop)
}

func spreadEV(winAmount, lossAmount, riskBase, pop float64) EVMetrics {
	winProb := pop / 100
	lossProb := 1 - winProb

	ev := winProb*winAmount - lossProb*lossAmount

	var evPct, pf float64
	if riskBase > 0 {
		evPct = ev / riskBase * 100
		if lossProb > 0 && lossAmount > 0 {
			pf = (winProb * winAmount) / (lossProb * lossAmount)
		} else {
			pf = math.Inf(1)
		}
	}

	return EVMetrics{
		ExpectedValue: ev,
		EVPercent:     evPct,
		WinAmount:     winAmount,
		LossAmount:    lossAmount,
		WinProb:       winProb,
		LossProb:      lossProb,
		ProfitFactor:  pf,
	}
}

// MeetsEVThreshold chequea el umbral mínimo de EV (threshold decimal:
// 0.20 = 20%). Devuelve también las métricas para diagnóstico.
func MeetsEVThreshold(m EVMetrics, threshold float64) bool {
	return m.EVPercent >= threshold*100
}

// KellyFraction calcula la fracción de capital a arriesgar según Kelly.
//
//	f = (b·p - q) / b, con b = ratio ganancia/pérdida
//
// Se aplica quarter-Kelly por seguridad, capado al 5% del capital y con
// piso en 0 (Kelly negativo = no operar). Es consultivo, no bloqueante.
func KellyFraction(winProb, winAmount, lossAmount float64) float64 {
	if lossAmount == 0 {
		return 0
	}

	b := winAmount / lossAmount
	p := winProb
	q := 1 - p

	kelly := (b*p - q) / b
	return math.Max(0, math.Min(kelly*0.25, 0.05))
}

// SharpeRatio calcula el ratio de Sharpe de la estrategia.
func SharpeRatio(expectedReturn, stdDev, riskFreeRate float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (expectedReturn - riskFreeRate) / stdDev
}

// BreakevenWinRate devuelve el win rate (0-100) que deja la estrategia
// en punto muerto dados los montos medios de ganancia y pérdida.
func BreakevenWinRate(avgWin, avgLoss float64) float64 {
	if avgWin+avgLoss == 0 {
		return 50
	}
	return avgLoss / (avgWin + avgLoss) * 100
}

// Drawdown es el máximo retroceso pico-a-valle de una curva de capital.
type Drawdown struct {
	Max        float64 // en dólares
	MaxPercent float64
}

// SimulationResult es el resultado de la simulación Monte Carlo.
type SimulationResult struct {
	StartingCapital float64
	EndingCapital   float64
	TotalProfit     float64
	ReturnPercent   float64
	Wins            int
	Losses          int
	ActualWinRate   float64 // 0-100
	MaxDrawdown     Drawdown
}

// SimulateTrades corre una simulación Monte Carlo de n trades
// independientes con el win rate (0-100) y montos medios dados.
// El rng se inyecta para que los tests sean deterministas.
// El drawdown se trackea incrementalmente con un pico corriente,
// sin guardar el historial completo de capital.
func SimulateTrades(winRate, avgWin, avgLoss, startingCapital float64, n int, rng *rand.Rand) SimulationResult {
	capital := startingCapital
	peak := capital
	var dd Drawdown
	wins, losses := 0, 0

	for i := 0; i < n; i++ {
		if rng.Float64()*100 < winRate {
			capital += avgWin
			wins++
		} else {
			capital -= avgLoss
			losses++
		}

		if capital > peak {
			peak = capital
		}
		drop := peak - capital
		if drop > dd.Max {
			dd.Max = drop
			if peak > 0 {
				dd.MaxPercent = drop / peak * 100
			}
		}
	}

	result := SimulationResult{
		StartingCapital: startingCapital,
		EndingCapital:   capital,
		TotalProfit:     capital - startingCapital,
		Wins:            wins,
		Losses:          losses,
		MaxDrawdown:     dd,
	}
	if startingCapital > 0 {
		result.ReturnPercent = (capital - startingCapital) / startingCapital * 100
	}
	if n > 0 {
		result.ActualWinRate = float64(wins) / float64(n) * 100
	}
	return result
}
