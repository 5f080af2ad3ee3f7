package ports

import (
	"context"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Notifier presenta las señales generadas al usuario.
type Notifier interface {
	// Notify muestra las señales ordenadas por calidad.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, signals []domain.TradeSignal) error
}
