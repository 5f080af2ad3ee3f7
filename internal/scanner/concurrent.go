package scanner

// concurrent.go — worker pool para el análisis paralelo del universo.
//
// Cada símbolo cuesta varias llamadas al vendor (fundamentales,
// correlación, histórico, cadenas); analizarlos en paralelo amortiza la
// latencia de red mientras el rate limiter del adapter marca el ritmo.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// scanUniverse analiza todos los símbolos del universo con un worker pool.
// Si cfg.Workers <= 0 usa runtime.NumCPU() × 2.
func (s *Scanner) scanUniverse(ctx context.Context) []symbolResult {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(s.cfg.Universe) {
		workers = len(s.cfg.Universe)
	}

	workCh := make(chan string, len(s.cfg.Universe))
	resultCh := make(chan symbolResult, len(s.cfg.Universe))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workCh {
				if ctx.Err() != nil {
					// Contexto cancelado: drenar sin analizar. Los
					// símbolos drenados cuentan como sin datos para que
					// el reporte cuadre con el universo.
					resultCh <- symbolResult{symbol: symbol, noData: true}
					continue
				}
				resultCh <- s.analyzeSymbol(ctx, symbol)
			}
		}()
	}

	for _, symbol := range s.cfg.Universe {
		workCh <- symbol
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]symbolResult, 0, len(s.cfg.Universe))
	for r := range resultCh {
		results = append(results, r)
	}

	slog.Debug("universe scanned",
		"symbols", len(s.cfg.Universe),
		"analyzed", len(results),
		"workers", workers,
	)
	return results
}
