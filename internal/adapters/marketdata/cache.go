package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

// CacheTTLs son los tiempos de vida por clase de dato. Los fundamentales
// cambian poco; las cadenas de opciones son las más volátiles del lote.
type CacheTTLs struct {
	Fundamentals time.Duration
	Technicals   time.Duration
	History      time.Duration
	Chains       time.Duration
	Correlation  time.Duration
}

// DefaultCacheTTLs devuelve los TTLs de referencia.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Fundamentals: 15 * time.Minute,
		Technicals:   5 * time.Minute,
		History:      time.Hour,
		Chains:       5 * time.Minute,
		Correlation:  time.Hour,
	}
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachedProvider decora un ports.DataProvider con un cache TTL en memoria.
// Evita repetir fetches cuando el mismo símbolo aparece en varios ciclos
// seguidos. Las correlaciones se calculan aquí, sobre el propio cache de
// históricos: la serie del benchmark se baja una sola vez por TTL aunque
// todo el universo la compare. Solo las expiraciones pasan directo.
type CachedProvider struct {
	inner ports.DataProvider
	ttls  CacheTTLs
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedProvider envuelve el provider con los TTLs dados.
func NewCachedProvider(inner ports.DataProvider, ttls CacheTTLs) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttls:    ttls,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *CachedProvider) put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// Fundamentals implementa ports.DataProvider.
func (c *CachedProvider) Fundamentals(ctx context.Context, symbol string) (domain.FundamentalSnapshot, error) {
	key := "fund:" + symbol
	if v, ok := c.get(key); ok {
		return v.(domain.FundamentalSnapshot), nil
	}
	f, err := c.inner.Fundamentals(ctx, symbol)
	if err != nil {
		return domain.FundamentalSnapshot{}, err
	}
	c.put(key, f, c.ttls.Fundamentals)
	return f, nil
}

// Technicals implementa ports.DataProvider.
func (c *CachedProvider) Technicals(ctx context.Context, symbol string) (domain.TechnicalSnapshot, error) {
	key := "tech:" + symbol
	if v, ok := c.get(key); ok {
		return v.(domain.TechnicalSnapshot), nil
	}
	t, err := c.inner.Technicals(ctx, symbol)
	if err != nil {
		return domain.TechnicalSnapshot{}, err
	}
	c.put(key, t, c.ttls.Technicals)
	return t, nil
}

// HistoricalPrices implementa ports.DataProvider.
func (c *CachedProvider) HistoricalPrices(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error) {
	key := "hist:" + symbol + ":" + from.Format("2006-01-02")
	if v, ok := c.get(key); ok {
		return v.([]domain.PricePoint), nil
	}
	points, err := c.inner.HistoricalPrices(ctx, symbol, from)
	if err != nil {
		return nil, err
	}
	c.put(key, points, c.ttls.History)
	return points, nil
}

// OptionExpirations implementa ports.DataProvider. Sin cache.
func (c *CachedProvider) OptionExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return c.inner.OptionExpirations(ctx, symbol)
}

// OptionChain implementa ports.DataProvider.
func (c *CachedProvider) OptionChain(ctx context.Context, symbol string, expiration time.Time, side domain.OptionType) ([]domain.OptionQuote, error) {
	key := "chain:" + symbol + ":" + expiration.Format("2006-01-02") + ":" + string(side)
	if v, ok := c.get(key); ok {
		return v.([]domain.OptionQuote), nil
	}
	quotes, err := c.inner.OptionChain(ctx, symbol, expiration, side)
	if err != nil {
		return nil, err
	}
	c.put(key, quotes, c.ttls.Chains)
	return quotes, nil
}

// Correlation implementa ports.DataProvider. No delega al inner: calcula
// sobre c.HistoricalPrices para que la serie del benchmark salga del
// cache, y guarda el valor con su propio TTL.
func (c *CachedProvider) Correlation(ctx context.Context, symbolA, symbolB string, window time.Duration) (float64, error) {
	key := "corr:" + symbolA + ":" + symbolB
	if v, ok := c.get(key); ok {
		return v.(float64), nil
	}

	from := c.now().Add(-window)
	a, err := c.HistoricalPrices(ctx, symbolA, from)
	if err != nil {
		return 0, err
	}
	b, err := c.HistoricalPrices(ctx, symbolB, from)
	if err != nil {
		return 0, err
	}

	corr, err := returnsCorrelation(a, b)
	if err != nil {
		return 0, err
	}
	c.put(key, corr, c.ttls.Correlation)
	return corr, nil
}
