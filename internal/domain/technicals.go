package domain

// technicals.go — capa 2 (gate por instrumento): filtro técnico de
// mean reversion. Mismo contrato pass/fail + razones que la capa 1.

import (
	"fmt"
	"math"
	"time"
)

// TechnicalSnapshot son los indicadores técnicos de un símbolo por fetch.
type TechnicalSnapshot struct {
	Symbol string

	Price  float64
	SMA20  float64
	SMA50  float64
	SMA200 float64

	RSI float64

	Volume      float64
	AvgVolume20 float64
	VolumeRatio float64 // volumen actual / media 20d

	// Distancia porcentual sobre el mínimo de 52 semanas.
	DistFrom52WLow float64

	FetchedAt time.Time
}

// TechnicalRules son los umbrales del gate técnico.
type TechnicalRules struct {
	RSIMin float64 // banda oversold-pero-estable
	RSIMax float64
	// MinVolumeRatio exige volumen por encima de la media (>1.0).
	MinVolumeRatio float64
	// MaxDistFrom52WLow limita la distancia al mínimo de 52 semanas (%).
	MaxDistFrom52WLow float64
}

// DefaultTechnicalRules devuelve los umbrales de estrategia de referencia.
func DefaultTechnicalRules() TechnicalRules {
	return TechnicalRules{
		RSIMin:            30,
		RSIMax:            45,
		MinVolumeRatio:    1.0,
		MaxDistFrom52WLow: 10,
	}
}

// EvaluateTechnicals chequea el snapshot contra las reglas del gate.
func EvaluateTechnicals(t TechnicalSnapshot, r TechnicalRules) CheckResult {
	c := newCheck()

	if t.RSI < r.RSIMin || t.RSI > r.RSIMax {
		c.fail(fmt.Sprintf("RSI %.1f fuera de [%.0f, %.0f]", t.RSI, r.RSIMin, r.RSIMax))
	}
	if t.VolumeRatio <= r.MinVolumeRatio {
		c.fail(fmt.Sprintf("volume ratio %.2f <= %.1f", t.VolumeRatio, r.MinVolumeRatio))
	}
	if t.DistFrom52WLow > r.MaxDistFrom52WLow {
		c.fail(fmt.Sprintf("distancia al mínimo 52w %.1f%% > %.0f%%", t.DistFrom52WLow, r.MaxDistFrom52WLow))
	}

	return c
}

// ReversionScore ordena los instrumentos que pasan el gate por fuerza del
// setup de mean reversion. Pondera: proximidad del RSI al centro de la
// banda (35) 0.35, fuerza de volumen 0.25, cercanía al mínimo 52w 0.25,
// posición frente a la SMA20 0.15.
func ReversionScore(t TechnicalSnapshot) float64 {
	var score float64

	if t.RSI > 0 {
		deviation := math.Abs(t.RSI - 35)
		score += max0((15-deviation)/15*100) * 0.35
	}
	if t.VolumeRatio > 0 {
		score += min100((t.VolumeRatio-1)*50) * 0.25
	}
	if t.DistFrom52WLow >= 0 {
		score += max0((10-t.DistFrom52WLow)/10*100) * 0.25
	}
	// Precio cerca pero por encima/debajo de la SMA20: setup de rebote.
	if t.SMA20 > 0 && t.Price > 0 {
		dist := (t.Price - t.SMA20) / t.SMA20 * 100
		if dist >= -5 && dist <= 0 {
			score += 100 * 0.15
		} else {
			score += max0(100-math.Abs(dist)*10) * 0.15
		}
	}

	return score
}
