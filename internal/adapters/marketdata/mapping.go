package marketdata

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/optbot/internal/domain"
)

const (
	rsiPeriod    = 14
	volumeWindow = 20
)

// mapFundamentals convierte el profile del vendor a domain.FundamentalSnapshot.
// La correlación benchmark se calcula aparte (necesita dos series).
func mapFundamentals(p companyProfile, now time.Time) domain.FundamentalSnapshot {
	f := domain.FundamentalSnapshot{
		Symbol:       p.Symbol,
		CompanyName:  p.CompanyName,
		Price:        p.Price,
		MarketCap:    p.MarketCap,
		PERatio:      p.PERatio,
		ROE:          p.ROE,
		DebtToEquity: p.DebtToEquity,
		Sector:       p.Sector,
		Industry:     p.Industry,
		FetchedAt:    now,
	}

	if len(p.QuarterlyEPS) > 0 {
		f.EPSCurrent = p.QuarterlyEPS[0]
	}
	if len(p.QuarterlyEPS) > 1 {
		f.EPSQ1Ago = p.QuarterlyEPS[1]
	}
	if len(p.QuarterlyEPS) > 2 {
		f.EPSQ2Ago = p.QuarterlyEPS[2]
	}

	return f
}

// mapHistory convierte las velas diarias del vendor a domain.PricePoint.
func mapHistory(days []historyDay) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(days))
	for _, d := range days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("marketdata.mapHistory: fecha %q: %w", d.Date, err)
		}
		points = append(points, domain.PricePoint{
			Date:   date,
			Close:  d.Close,
			High:   d.High,
			Low:    d.Low,
			Volume: d.Volume,
		})
	}
	return points, nil
}

// mapChain convierte la cadena del vendor a domain.OptionQuote. Los Greeks
// del vendor se conservan como hint pero el scanner los recalcula siempre.
func mapChain(options []chainOption, now time.Time) []domain.OptionQuote {
	quotes := make([]domain.OptionQuote, 0, len(options))
	for _, o := range options {
		exp, err := time.Parse("2006-01-02", o.Expiration)
		if err != nil {
			continue // contrato con expiración malformada: se descarta
		}

		q := domain.OptionQuote{
			Symbol:       o.Symbol,
			Strike:       o.Strike,
			Expiration:   exp,
			Bid:          o.Bid,
			Ask:          o.Ask,
			Last:         o.Last,
			Volume:       o.Volume,
			OpenInterest: o.OpenInterest,
			DTE:          domain.DaysToExpiration(exp, now),
		}

		if o.OptionType == "put" {
			q.Type = domain.OptionPut
		} else {
			q.Type = domain.OptionCall
		}

		if o.Greeks != nil {
			q.Greeks = domain.Greeks{
				Delta: o.Greeks.Delta,
				Gamma: o.Greeks.Gamma,
				Theta: o.Greeks.Theta,
				Vega:  o.Greeks.Vega,
				Rho:   o.Greeks.Rho,
			}
			q.ImpliedVol = o.Greeks.MidIV
			if q.ImpliedVol <= 0 {
				q.ImpliedVol = o.Greeks.SmvVol
			}
			q.IVPercentile = o.Greeks.IVRank
		}

		quotes = append(quotes, q)
	}
	return quotes
}

// computeTechnicals deriva los indicadores técnicos de la serie diaria.
// La serie debe venir ordenada ascendente por fecha; el último punto es hoy.
func computeTechnicals(symbol string, points []domain.PricePoint, now time.Time) (domain.TechnicalSnapshot, error) {
	if len(points) < volumeWindow+1 {
		return domain.TechnicalSnapshot{}, fmt.Errorf("marketdata.computeTechnicals: %d velas (< %d)", len(points), volumeWindow+1)
	}

	last := points[len(points)-1]
	t := domain.TechnicalSnapshot{
		Symbol:    symbol,
		Price:     last.Close,
		Volume:    last.Volume,
		FetchedAt: now,
	}

	t.SMA20 = sma(points, 20)
	t.SMA50 = sma(points, 50)
	t.SMA200 = sma(points, 200)
	t.RSI = rsi(points, rsiPeriod)

	// Volumen: media de las 20 velas previas, sin contar la de hoy.
	prev := points[:len(points)-1]
	var sum float64
	for _, p := range prev[len(prev)-volumeWindow:] {
		sum += p.Volume
	}
	t.AvgVolume20 = sum / volumeWindow
	if t.AvgVolume20 > 0 {
		t.VolumeRatio = last.Volume / t.AvgVolume20
	}

	// Distancia al mínimo de 52 semanas sobre la serie disponible.
	var low float64
	for _, p := range points {
		if p.Low <= 0 {
			continue
		}
		if low == 0 || p.Low < low {
			low = p.Low
		}
	}
	if low > 0 {
		t.DistFrom52WLow = (last.Close - low) / low * 100
	}

	return t, nil
}

// sma calcula la media simple de los últimos n cierres. 0 si faltan datos.
func sma(points []domain.PricePoint, n int) float64 {
	if len(points) < n {
		return 0
	}
	var sum float64
	for _, p := range points[len(points)-n:] {
		sum += p.Close
	}
	return sum / float64(n)
}

// rsi calcula el RSI clásico de n períodos con media simple de
// ganancias/pérdidas. 50 (neutral) si faltan datos.
func rsi(points []domain.PricePoint, n int) float64 {
	if len(points) < n+1 {
		return 50
	}

	var gains, losses float64
	tail := points[len(points)-n-1:]
	for i := 1; i < len(tail); i++ {
		change := tail[i].Close - tail[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// returnsCorrelation calcula la correlación de retornos diarios entre dos
// series alineadas por fecha.
func returnsCorrelation(a, b []domain.PricePoint) (float64, error) {
	bByDate := make(map[time.Time]float64, len(b))
	for _, p := range b {
		bByDate[p.Date.Truncate(24*time.Hour)] = p.Close
	}

	var closesA, closesB []float64
	for _, p := range a {
		if close, ok := bByDate[p.Date.Truncate(24*time.Hour)]; ok && p.Close > 0 && close > 0 {
			closesA = append(closesA, p.Close)
			closesB = append(closesB, close)
		}
	}

	if len(closesA) < 3 {
		return 0, fmt.Errorf("marketdata.returnsCorrelation: %d fechas comunes", len(closesA))
	}

	retA := make([]float64, len(closesA)-1)
	retB := make([]float64, len(closesB)-1)
	for i := 1; i < len(closesA); i++ {
		retA[i-1] = closesA[i]/closesA[i-1] - 1
		retB[i-1] = closesB[i]/closesB[i-1] - 1
	}

	corr, err := stats.Correlation(retA, retB)
	if err != nil {
		return 0, fmt.Errorf("marketdata.returnsCorrelation: %w", err)
	}
	return corr, nil
}
