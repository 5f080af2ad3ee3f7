package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// ScanSummary es el resumen persistido de un ciclo de scan.
type ScanSummary struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	Universe        int
	PassedLayer1    int
	PassedLayer2    int
	PassedLayer3    int
	Signals         int
	SkippedNoData   int
	PairSpreadValue float64
}

// Storage persiste señales, posiciones y resúmenes de scan.
type Storage interface {
	// ApplySchema crea las tablas si no existen. Se llama al arrancar.
	ApplySchema(ctx context.Context) error

	// SaveSignal inserta o actualiza una señal por ID.
	SaveSignal(ctx context.Context, s domain.TradeSignal) error

	// GetSignals devuelve las señales creadas desde la fecha dada,
	// más reciente primero.
	GetSignals(ctx context.Context, since time.Time) ([]domain.TradeSignal, error)

	// PruneSignals borra señales más viejas que la retención.
	PruneSignals(ctx context.Context, olderThan time.Duration) (int64, error)

	// SaveTrade inserta o actualiza una posición por ID.
	SaveTrade(ctx context.Context, t *domain.Trade) error

	// GetOpenTrades devuelve las posiciones con status OPEN.
	GetOpenTrades(ctx context.Context) ([]*domain.Trade, error)

	// GetClosedTrades devuelve las posiciones cerradas desde la fecha dada.
	GetClosedTrades(ctx context.Context, since time.Time) ([]*domain.Trade, error)

	// SaveScanSummary persiste el resumen de un ciclo completado.
	SaveScanSummary(ctx context.Context, s ScanSummary) error

	// Close libera la conexión subyacente.
	Close() error
}
