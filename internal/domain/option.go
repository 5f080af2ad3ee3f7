package domain

import "time"

// OptionType distingue calls de puts.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Greeks son las sensibilidades de un contrato calculadas con Black-Scholes.
// Theta se expresa por día de calendario; Vega por punto porcentual de IV.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// OptionQuote es un contrato de la cadena con sus Greeks derivados.
// Los Greeks NUNCA se toman del proveedor: se recalculan siempre desde
// (spot, strike, tiempo, rate, IV) para que sean consistentes entre símbolos.
type OptionQuote struct {
	Symbol     string
	Strike     float64
	Expiration time.Time
	Type       OptionType

	Bid  float64
	Ask  float64
	Last float64

	Volume       int64
	OpenInterest int64

	ImpliedVol   float64 // decimal: 0.25 = 25%
	IVPercentile float64 // rank 0-100 contra muestra histórica

	Greeks Greeks
	DTE    int
}

// Mid devuelve el precio medio bid/ask.
func (q OptionQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// HasMarket indica si el contrato tiene mercado a dos puntas.
func (q OptionQuote) HasMarket() bool {
	return q.Bid > 0 && q.Ask > 0
}
