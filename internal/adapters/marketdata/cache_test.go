package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// countingProvider cuenta las llamadas que llegan al provider real.
type countingProvider struct {
	fundamentals int
	technicals   int
	history      int
	chains       int
	correlations int
}

func (c *countingProvider) Fundamentals(_ context.Context, symbol string) (domain.FundamentalSnapshot, error) {
	c.fundamentals++
	return domain.FundamentalSnapshot{Symbol: symbol}, nil
}

func (c *countingProvider) Technicals(_ context.Context, symbol string) (domain.TechnicalSnapshot, error) {
	c.technicals++
	return domain.TechnicalSnapshot{Symbol: symbol}, nil
}

func (c *countingProvider) HistoricalPrices(_ context.Context, _ string, from time.Time) ([]domain.PricePoint, error) {
	c.history++
	closes := []float64{100, 102, 101, 104, 103}
	points := make([]domain.PricePoint, len(closes))
	for i, close := range closes {
		points[i] = domain.PricePoint{Date: from.AddDate(0, 0, i), Close: close}
	}
	return points, nil
}

func (c *countingProvider) OptionExpirations(context.Context, string) ([]time.Time, error) {
	return []time.Time{time.Now().AddDate(0, 1, 0)}, nil
}

func (c *countingProvider) OptionChain(_ context.Context, symbol string, _ time.Time, side domain.OptionType) ([]domain.OptionQuote, error) {
	c.chains++
	return []domain.OptionQuote{{Symbol: symbol, Type: side}}, nil
}

func (c *countingProvider) Correlation(context.Context, string, string, time.Duration) (float64, error) {
	c.correlations++
	return -0.4, nil
}

func TestCachedProvider_HitsWithinTTL(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, DefaultCacheTTLs())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cached.Fundamentals(ctx, "JPM")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.fundamentals)

	// Otro símbolo es otra clave.
	_, err := cached.Fundamentals(ctx, "PFE")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.fundamentals)
}

func TestCachedProvider_ExpiresAfterTTL(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, CacheTTLs{Fundamentals: 15 * time.Minute})

	current := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := cached.Fundamentals(ctx, "JPM")
	require.NoError(t, err)

	// Dentro del TTL: no toca el provider.
	current = current.Add(10 * time.Minute)
	_, err = cached.Fundamentals(ctx, "JPM")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.fundamentals)

	// Pasado el TTL: refetch.
	current = current.Add(10 * time.Minute)
	_, err = cached.Fundamentals(ctx, "JPM")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.fundamentals)
}

func TestCachedProvider_ChainKeyedByExpirationAndSide(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, DefaultCacheTTLs())
	ctx := context.Background()

	expA := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)
	expB := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	_, err := cached.OptionChain(ctx, "JPM", expA, domain.OptionPut)
	require.NoError(t, err)
	_, err = cached.OptionChain(ctx, "JPM", expA, domain.OptionPut)
	require.NoError(t, err)
	_, err = cached.OptionChain(ctx, "JPM", expB, domain.OptionPut)
	require.NoError(t, err)

	// Mismo símbolo y expiración pero el otro lado: clave distinta.
	_, err = cached.OptionChain(ctx, "JPM", expA, domain.OptionCall)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.chains)
}

func TestCachedProvider_CorrelationReusesHistoryCache(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, DefaultCacheTTLs())
	cached.now = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	// JPM y MGK: dos fetches de histórico.
	_, err := cached.Correlation(ctx, "JPM", "MGK", 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.history)

	// BAC contra el mismo benchmark: solo baja la serie de BAC.
	_, err = cached.Correlation(ctx, "BAC", "MGK", 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.history)

	// El par repetido sale del cache del valor, sin tocar históricos.
	_, err = cached.Correlation(ctx, "JPM", "MGK", 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.history)

	// El cálculo vive en el decorador: el inner nunca ve Correlation.
	assert.Equal(t, 0, inner.correlations)
}

func TestCachedProvider_CorrelationValue(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, DefaultCacheTTLs())
	cached.now = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }

	// Ambas series son idénticas → correlación de retornos 1.
	corr, err := cached.Correlation(context.Background(), "JPM", "MGK", 365*24*time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr, 1e-9)
}

func TestCachedProvider_ZeroTTLNeverCaches(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, CacheTTLs{})
	ctx := context.Background()

	_, err := cached.Technicals(ctx, "JPM")
	require.NoError(t, err)
	_, err = cached.Technicals(ctx, "JPM")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.technicals)
}
