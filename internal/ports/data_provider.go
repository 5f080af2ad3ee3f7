package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// ErrUnavailable indica que el proveedor no tiene datos para el símbolo
// pedido (respuesta vacía, símbolo deslistado, sin cadena de opciones).
// El scanner excluye el símbolo del ciclo y sigue; no es un error fatal.
var ErrUnavailable = errors.New("market data unavailable")

// DataProvider obtiene datos de mercado de un vendor externo.
// Todas las llamadas respetan el context para timeout/cancel; los
// errores transitorios del vendor se reintentan dentro del adapter.
type DataProvider interface {
	// Fundamentals devuelve el snapshot fundamental del símbolo.
	Fundamentals(ctx context.Context, symbol string) (domain.FundamentalSnapshot, error)

	// Technicals devuelve los indicadores técnicos diarios del símbolo.
	Technicals(ctx context.Context, symbol string) (domain.TechnicalSnapshot, error)

	// HistoricalPrices devuelve la serie diaria de cierres desde from.
	HistoricalPrices(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error)

	// OptionExpirations devuelve las fechas de expiración disponibles,
	// ordenadas ascendente.
	OptionExpirations(ctx context.Context, symbol string) ([]time.Time, error)

	// OptionChain devuelve un lado de la cadena de una expiración:
	// todas las strikes del tipo pedido, con Greeks e IV del vendor.
	OptionChain(ctx context.Context, symbol string, expiration time.Time, side domain.OptionType) ([]domain.OptionQuote, error)

	// Correlation devuelve la correlación de retornos diarios entre dos
	// símbolos sobre la ventana dada.
	Correlation(ctx context.Context, symbolA, symbolB string, window time.Duration) (float64, error)
}
