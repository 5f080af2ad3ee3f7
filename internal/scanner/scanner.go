package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

// signalRetention es cuánto tiempo se conservan señales viejas en storage.
const signalRetention = 30 * 24 * time.Hour

// Config contiene la configuración del pipeline de cuatro capas.
type Config struct {
	Interval time.Duration
	Workers  int // goroutines para el análisis por símbolo (0 = NumCPU×2)
	Universe []string

	// Par de ETFs del trigger de rotación: equal-weight vs cap-weight.
	EqualWeightSymbol string
	CapWeightSymbol   string
	SpreadThreshold   float64
	SpreadDirection   domain.SpreadDirection
	Lookback          time.Duration

	// Cesta benchmark del gate de correlación de la capa fundamental.
	BenchmarkETF string

	Fundamentals domain.FundamentalRules
	Technicals   domain.TechnicalRules
	Spreads      domain.SpreadParams

	// Capa de riesgo.
	Capital            float64
	MaxPositionSizePct float64
	MaxPositions       int
	MaxSectorPositions int
	EVThreshold        float64 // decimal: 0.20 = 20%
	RiskFreeRate       float64

	DryRun bool
}

// Scanner es el orquestador del pipeline: trigger de rotación →
// fundamentales → técnicos → spreads de opciones → riesgo/EV.
type Scanner struct {
	cfg      Config
	data     ports.DataProvider
	storage  ports.Storage
	notifier ports.Notifier
	now      func() time.Time
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(cfg Config, data ports.DataProvider, storage ports.Storage, notifier ports.Notifier) *Scanner {
	return &Scanner{
		cfg:      cfg,
		data:     data,
		storage:  storage,
		notifier: notifier,
		now:      time.Now,
	}
}

// PairStatus agrupa el estado del par equal-weight/cap-weight: la serie
// resumida, el chequeo de umbral y la señal de rotación clasificada.
type PairStatus struct {
	Stats     domain.PairSpreadStats
	Check     domain.ExtremeCheck
	Rotation  domain.Rotation
	Reversion float64 // probabilidad 0-100 de reversión a la media
}

// ScanReport resume un ciclo completo con los conteos por capa.
type ScanReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Pair      PairStatus
	Triggered bool

	Universe           int
	PassedFundamentals int
	PassedTechnicals   int
	PassedGreeks       int
	SkippedNoData      int

	Signals []domain.TradeSignal
	Outlook PortfolioOutlook
}

// PortfolioOutlook agrega las señales aceptadas del ciclo: exposición,
// medias de PoP y EV, Sharpe sobre la dispersión de EV y una simulación
// Monte Carlo de la estrategia con los montos medios de salida.
type PortfolioOutlook struct {
	Positions      int
	CapitalAtRisk  float64
	UtilizationPct float64

	// Σ capital en riesgo × EV decimal por señal.
	ExpectedProfit float64

	AvgPoP       float64
	AvgEVPercent float64
	Sharpe       float64

	Simulation domain.SimulationResult
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Si cfg.DryRun está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.Interval,
		"universe", len(s.cfg.Universe),
		"pair", s.cfg.EqualWeightSymbol+"/"+s.cfg.CapWeightSymbol,
		"workers", s.cfg.Workers,
		"dry_run", s.cfg.DryRun,
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.DryRun {
			return err
		}
	}

	if s.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve el reporte completo,
// sin notificar ni persistir.
func (s *Scanner) RunOnce(ctx context.Context) (ScanReport, error) {
	return s.cycle(ctx)
}

// PairSpreadStatus calcula el estado actual del par equal-weight vs
// cap-weight sin correr el resto del pipeline.
func (s *Scanner) PairSpreadStatus(ctx context.Context) (PairStatus, error) {
	from := s.now().Add(-s.cfg.Lookback)

	eq, err := s.data.HistoricalPrices(ctx, s.cfg.EqualWeightSymbol, from)
	if err != nil {
		return PairStatus{}, fmt.Errorf("scanner.PairSpreadStatus: %s: %w", s.cfg.EqualWeightSymbol, err)
	}
	cw, err := s.data.HistoricalPrices(ctx, s.cfg.CapWeightSymbol, from)
	if err != nil {
		return PairStatus{}, fmt.Errorf("scanner.PairSpreadStatus: %s: %w", s.cfg.CapWeightSymbol, err)
	}

	spread, err := domain.BuildPairSpread(eq, cw)
	if err != nil {
		return PairStatus{}, fmt.Errorf("scanner.PairSpreadStatus: %w", err)
	}
	stats, err := domain.ComputePairSpreadStats(spread)
	if err != nil {
		return PairStatus{}, fmt.Errorf("scanner.PairSpreadStatus: %w", err)
	}

	return PairStatus{
		Stats:     stats,
		Check:     domain.IsSpreadExtreme(stats.Current, s.cfg.SpreadThreshold, s.cfg.SpreadDirection),
		Rotation:  domain.SectorRotationSignal(stats, s.cfg.SpreadThreshold),
		Reversion: domain.ReversionProbability(spread, stats.Current),
	}, nil
}

// runCycle ejecuta un ciclo completo, notifica las señales y persiste el
// resumen. Los fallos de notifier/storage no tumban el ciclo.
func (s *Scanner) runCycle(ctx context.Context) error {
	start := time.Now()

	report, err := s.cycle(ctx)
	if err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, report.Signals); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if s.storage != nil {
		for _, sig := range report.Signals {
			if err := s.storage.SaveSignal(ctx, sig); err != nil {
				slog.Warn("storage error saving signal", "id", sig.ID, "err", err)
			}
		}
		if err := s.storage.SaveScanSummary(ctx, report.summary()); err != nil {
			slog.Warn("storage error saving summary", "err", err)
		}
		if pruned, err := s.storage.PruneSignals(ctx, signalRetention); err != nil {
			slog.Warn("storage error pruning signals", "err", err)
		} else if pruned > 0 {
			slog.Debug("pruned old signals", "count", pruned)
		}
	}

	slog.Info("scan cycle complete",
		"triggered", report.Triggered,
		"pair_spread", fmt.Sprintf("%+.2f%%", report.Pair.Stats.Current),
		"rotation", report.Pair.Rotation.Signal,
		"passed_fundamentals", report.PassedFundamentals,
		"passed_technicals", report.PassedTechnicals,
		"passed_greeks", report.PassedGreeks,
		"skipped_no_data", report.SkippedNoData,
		"signals", len(report.Signals),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if out := report.Outlook; out.Positions > 0 {
		slog.Info("portfolio outlook",
			"positions", out.Positions,
			"capital_at_risk", fmt.Sprintf("%.0f", out.CapitalAtRisk),
			"utilization_pct", fmt.Sprintf("%.1f", out.UtilizationPct),
			"expected_profit", fmt.Sprintf("%.0f", out.ExpectedProfit),
			"avg_pop", fmt.Sprintf("%.1f", out.AvgPoP),
			"avg_ev_pct", fmt.Sprintf("%.1f", out.AvgEVPercent),
			"sharpe", fmt.Sprintf("%.2f", out.Sharpe),
			"sim_return_pct", fmt.Sprintf("%.1f", out.Simulation.ReturnPercent),
			"sim_max_drawdown", fmt.Sprintf("%.0f", out.Simulation.MaxDrawdown.Max),
		)
	}
	return nil
}

// cycle corre el pipeline: primero el trigger global de rotación; si no
// hay extremo, el ciclo termina ahí con el reporte del par. Con trigger,
// analiza el universo en paralelo y pasa los candidatos por riesgo/EV.
func (s *Scanner) cycle(ctx context.Context) (ScanReport, error) {
	report := ScanReport{
		StartedAt: s.now(),
		Universe:  len(s.cfg.Universe),
	}

	pair, err := s.PairSpreadStatus(ctx)
	if err != nil {
		return ScanReport{}, fmt.Errorf("scanner.cycle: %w", err)
	}
	report.Pair = pair
	report.Triggered = pair.Check.IsExtreme

	if !report.Triggered {
		slog.Info("sin trigger de rotación, ciclo omitido",
			"pair_spread", fmt.Sprintf("%+.2f%%", pair.Stats.Current),
			"threshold", s.cfg.SpreadThreshold,
			"zscore", fmt.Sprintf("%.2f", pair.Stats.ZScore),
			"rotation", pair.Rotation.Signal,
		)
		report.FinishedAt = s.now()
		return report, nil
	}

	results := s.scanUniverse(ctx)

	var candidates []candidate
	for _, r := range results {
		if r.noData {
			report.SkippedNoData++
			continue
		}
		if r.passedFundamentals {
			report.PassedFundamentals++
		}
		if r.passedTechnicals {
			report.PassedTechnicals++
		}
		if len(r.candidates) > 0 {
			report.PassedGreeks++
			candidates = append(candidates, r.candidates...)
		}
	}

	var open []*domain.Trade
	if s.storage != nil {
		open, err = s.storage.GetOpenTrades(ctx)
		if err != nil {
			slog.Warn("storage error loading open trades", "err", err)
			open = nil
		}
	}

	report.Signals = s.riskPass(candidates, open, pair.Stats.Current)
	report.Outlook = s.portfolioOutlook(report.Signals, report.StartedAt)
	report.FinishedAt = s.now()
	return report, nil
}

// summary proyecta el reporte al resumen persistible.
func (r ScanReport) summary() ports.ScanSummary {
	return ports.ScanSummary{
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Universe:        r.Universe,
		PassedLayer1:    r.PassedFundamentals,
		PassedLayer2:    r.PassedTechnicals,
		PassedLayer3:    r.PassedGreeks,
		Signals:         len(r.Signals),
		SkippedNoData:   r.SkippedNoData,
		PairSpreadValue: r.Pair.Stats.Current,
	}
}

// rankSignals ordena por calidad compuesta descendente, con el símbolo
// como desempate estable.
func rankSignals(signals []domain.TradeSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		si, sj := domain.SignalQualityScore(signals[i]), domain.SignalQualityScore(signals[j])
		if si != sj {
			return si > sj
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}
