package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las señales en el modo configurado.
func (c *Console) Notify(_ context.Context, signals []domain.TradeSignal) error {
	if len(signals) == 0 {
		fmt.Fprintf(c.out, "[%s] sin señales este ciclo\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(signals)
	} else {
		c.printCompact(signals)
	}

	return nil
}

// printCompact imprime lo esencial en una línea por ciclo.
func (c *Console) printCompact(signals []domain.TradeSignal) {
	now := time.Now().Format("15:04:05")
	credit, debit := countByFamily(signals)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d señales → credit:%d debit:%d", now, len(signals), credit, debit)

	shown := 0
	for _, s := range signals {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s EV%+.0f%% PoP%.0f%%",
			s.Symbol, familyLabel(s.Spread.Type()), s.EVPercent, s.PoP)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con sizing y niveles de salida.
func (c *Console) printFull(signals []domain.TradeSignal) {
	now := time.Now().Format("15:04:05")
	credit, debit := countByFamily(signals)

	fmt.Fprintf(c.out, "\n[%s] %d señales — credit:%d debit:%d\n",
		now, len(signals), credit, debit)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Symbol", "Type", "Legs", "DTE", "Prima", "PoP", "EV%", "Riesgo$", "TP$", "SL$", "Kelly")

	for i, s := range signals {
		short, long := s.Spread.Legs()

		table.Append(
			fmt.Sprintf("%d", i+1),
			s.Symbol,
			familyLabel(s.Spread.Type()),
			fmt.Sprintf("%.0f/%.0f", short.Strike, long.Strike),
			fmt.Sprintf("%d", s.Spread.DTE()),
			fmt.Sprintf("$%.2f", s.Spread.EntryPrice()),
			fmt.Sprintf("%.0f%%", s.PoP),
			fmt.Sprintf("%+.1f%%", s.EVPercent),
			fmt.Sprintf("$%.0f", s.CapitalAtRisk),
			fmt.Sprintf("$%.0f", s.TakeProfit),
			fmt.Sprintf("$%.0f", s.StopLoss),
			fmt.Sprintf("%.1f%%", s.KellyFraction*100),
		)
	}

	table.Render()

	for _, s := range signals {
		if s.EntryNotes != "" {
			fmt.Fprintf(c.out, "  %s: %s\n", s.Symbol, s.EntryNotes)
		}
	}
}

// familyLabel abrevia la familia del spread para el output.
func familyLabel(t domain.SpreadType) string {
	if t == domain.SpreadDebitCall {
		return "DEBIT CALL"
	}
	return "CREDIT PUT"
}

// countByFamily cuenta señales por familia.
func countByFamily(signals []domain.TradeSignal) (credit, debit int) {
	for _, s := range signals {
		if s.Spread.Type() == domain.SpreadDebitCall {
			debit++
		} else {
			credit++
		}
	}
	return
}
