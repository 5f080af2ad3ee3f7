package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

// ErrNotFound es la respuesta 404 del vendor; se traduce al sentinel
// del port para que el scanner no dependa de este paquete.
var ErrNotFound = errors.New("symbol not found")

// Provider implementa ports.DataProvider contra el vendor HTTP.
type Provider struct {
	client *Client
	now    func() time.Time
}

// NewProvider crea un Provider con el client dado.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client, now: time.Now}
}

// Fundamentals implementa ports.DataProvider.
func (p *Provider) Fundamentals(ctx context.Context, symbol string) (domain.FundamentalSnapshot, error) {
	var resp fundamentalsResponse
	params := url.Values{"symbol": {symbol}}
	if err := p.client.get(ctx, p.client.quotesLimiter, "/markets/fundamentals", params, &resp); err != nil {
		return domain.FundamentalSnapshot{}, p.wrap("Fundamentals", symbol, err)
	}
	if resp.Profile.Symbol == "" {
		return domain.FundamentalSnapshot{}, fmt.Errorf("marketdata.Fundamentals: %s: %w", symbol, ports.ErrUnavailable)
	}
	return mapFundamentals(resp.Profile, p.now()), nil
}

// Technicals implementa ports.DataProvider. Los indicadores se derivan
// de un año de velas diarias, no los trae el vendor.
func (p *Provider) Technicals(ctx context.Context, symbol string) (domain.TechnicalSnapshot, error) {
	points, err := p.HistoricalPrices(ctx, symbol, p.now().AddDate(-1, 0, 0))
	if err != nil {
		return domain.TechnicalSnapshot{}, err
	}

	t, err := computeTechnicals(symbol, points, p.now())
	if err != nil {
		return domain.TechnicalSnapshot{}, fmt.Errorf("marketdata.Technicals: %s: %w", symbol, ports.ErrUnavailable)
	}
	return t, nil
}

// HistoricalPrices implementa ports.DataProvider.
func (p *Provider) HistoricalPrices(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error) {
	var resp historyResponse
	params := url.Values{
		"symbol":   {symbol},
		"interval": {"daily"},
		"start":    {from.Format("2006-01-02")},
	}
	if err := p.client.get(ctx, p.client.quotesLimiter, "/markets/history", params, &resp); err != nil {
		return nil, p.wrap("HistoricalPrices", symbol, err)
	}
	if len(resp.History.Day) == 0 {
		return nil, fmt.Errorf("marketdata.HistoricalPrices: %s: %w", symbol, ports.ErrUnavailable)
	}

	points, err := mapHistory(resp.History.Day)
	if err != nil {
		return nil, err
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// OptionExpirations implementa ports.DataProvider.
func (p *Provider) OptionExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	var resp expirationsResponse
	params := url.Values{"symbol": {symbol}}
	if err := p.client.get(ctx, p.client.quotesLimiter, "/markets/options/expirations", params, &resp); err != nil {
		return nil, p.wrap("OptionExpirations", symbol, err)
	}
	if len(resp.Expirations.Date) == 0 {
		return nil, fmt.Errorf("marketdata.OptionExpirations: %s: %w", symbol, ports.ErrUnavailable)
	}

	dates := make([]time.Time, 0, len(resp.Expirations.Date))
	for _, d := range resp.Expirations.Date {
		exp, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		dates = append(dates, exp)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// OptionChain implementa ports.DataProvider. Pide al vendor solo el lado
// que interesa y filtra por si el parámetro se ignora aguas arriba.
func (p *Provider) OptionChain(ctx context.Context, symbol string, expiration time.Time, side domain.OptionType) ([]domain.OptionQuote, error) {
	var resp chainResponse
	params := url.Values{
		"symbol":      {symbol},
		"expiration":  {expiration.Format("2006-01-02")},
		"option_type": {string(side)},
		"greeks":      {"true"},
	}
	if err := p.client.get(ctx, p.client.chainsLimiter, "/markets/options/chains", params, &resp); err != nil {
		return nil, p.wrap("OptionChain", symbol, err)
	}
	if len(resp.Options.Option) == 0 {
		return nil, fmt.Errorf("marketdata.OptionChain: %s %s: %w", symbol, expiration.Format("2006-01-02"), ports.ErrUnavailable)
	}

	quotes := mapChain(resp.Options.Option, p.now())
	filtered := quotes[:0]
	for _, q := range quotes {
		if q.Type == side {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

// Correlation implementa ports.DataProvider.
func (p *Provider) Correlation(ctx context.Context, symbolA, symbolB string, window time.Duration) (float64, error) {
	from := p.now().Add(-window)

	a, err := p.HistoricalPrices(ctx, symbolA, from)
	if err != nil {
		return 0, err
	}
	b, err := p.HistoricalPrices(ctx, symbolB, from)
	if err != nil {
		return 0, err
	}

	return returnsCorrelation(a, b)
}

// wrap traduce el 404 del vendor al sentinel del port y envuelve el resto.
func (p *Provider) wrap(op, symbol string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("marketdata.%s: %s: %w", op, symbol, ports.ErrUnavailable)
	}
	return fmt.Errorf("marketdata.%s: %s: %w", op, symbol, err)
}
