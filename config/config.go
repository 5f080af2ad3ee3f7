package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Config es la configuración completa del screener.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Strategy StrategyConfig `yaml:"strategy"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig controla el comportamiento del ciclo de scan.
type ScannerConfig struct {
	IntervalMinutes int      `yaml:"interval_minutes"`
	Workers         int      `yaml:"workers"` // 0 → NumCPU×2
	Universe        []string `yaml:"universe"`

	// Par de ETFs del trigger de rotación: equal-weight vs cap-weight.
	EqualWeightSymbol string `yaml:"equal_weight_symbol"`
	CapWeightSymbol   string `yaml:"cap_weight_symbol"`

	// Umbral del spread del par en puntos porcentuales (inclusivo).
	SpreadThreshold float64 `yaml:"spread_threshold"`
	SpreadDirection string  `yaml:"spread_direction"` // positive | negative

	LookbackDays int `yaml:"lookback_days"`
}

// StrategyConfig contiene los umbrales de las cuatro capas.
type StrategyConfig struct {
	// Capa 1: fundamentales.
	PEMin          float64  `yaml:"pe_min"`
	PEMax          float64  `yaml:"pe_max"`
	MinMarketCapB  float64  `yaml:"min_market_cap_b"` // en billions
	AllowedSectors []string `yaml:"allowed_sectors"`
	MaxDebtEquity  float64  `yaml:"max_debt_equity"`
	MinROE         float64  `yaml:"min_roe"`
	MaxCorrelation float64  `yaml:"max_correlation"`
	BenchmarkETF   string   `yaml:"benchmark_etf"`

	// Capa 2: técnicos.
	RSIMin            float64 `yaml:"rsi_min"`
	RSIMax            float64 `yaml:"rsi_max"`
	MinVolumeRatio    float64 `yaml:"min_volume_ratio"`
	MaxDistFrom52WLow float64 `yaml:"max_dist_52w_low"`

	// Capa 3: ventanas de spreads.
	CreditDeltaMin     float64 `yaml:"credit_delta_min"`
	CreditDeltaMax     float64 `yaml:"credit_delta_max"`
	DebitDeltaMin      float64 `yaml:"debit_delta_min"`
	DebitDeltaMax      float64 `yaml:"debit_delta_max"`
	WidthMin           float64 `yaml:"width_min"`
	WidthMax           float64 `yaml:"width_max"`
	CreditDTEMin       int     `yaml:"credit_dte_min"`
	CreditDTEMax       int     `yaml:"credit_dte_max"`
	DebitDTEMin        int     `yaml:"debit_dte_min"`
	DebitDTEMax        int     `yaml:"debit_dte_max"`
	CreditMinTheta     float64 `yaml:"credit_min_theta"`
	DebitMinTheta      float64 `yaml:"debit_min_theta"`
	CreditMinIVPct     float64 `yaml:"credit_min_iv_pct"`
	DebitIVPctMin      float64 `yaml:"debit_iv_pct_min"`
	DebitIVPctMax      float64 `yaml:"debit_iv_pct_max"`
	MaxGamma           float64 `yaml:"max_gamma"`
	MinPremiumWidthPct float64 `yaml:"min_premium_width_pct"`
	MinRewardRisk      float64 `yaml:"min_reward_risk"`

	// Capa 4: riesgo y EV.
	Capital            float64 `yaml:"capital"`
	MaxPositionSizePct float64 `yaml:"max_position_size_pct"`
	MaxPositions       int     `yaml:"max_positions"`
	MaxSectorPositions int     `yaml:"max_sector_positions"`
	EVThreshold        float64 `yaml:"ev_threshold"` // decimal: 0.20 = 20%
	RiskFreeRate       float64 `yaml:"risk_free_rate"`
}

// APIConfig contiene el acceso al vendor de market data.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// La key viene solo de env (MARKETDATA_API_KEY), nunca del YAML.
	Key string `yaml:"-"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del .env sobreescriben los del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalMinutes) * time.Minute
}

// Lookback devuelve la ventana histórica como time.Duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Scanner.LookbackDays) * 24 * time.Hour
}

// SpreadDirection materializa la dirección configurada del trigger.
func (c *Config) SpreadDirection() domain.SpreadDirection {
	return domain.SpreadDirection(c.Scanner.SpreadDirection)
}

// FundamentalRules materializa las reglas de la capa 1.
func (c *Config) FundamentalRules() domain.FundamentalRules {
	return domain.FundamentalRules{
		PEMin:          c.Strategy.PEMin,
		PEMax:          c.Strategy.PEMax,
		MinMarketCap:   c.Strategy.MinMarketCapB * 1e9,
		AllowedSectors: c.Strategy.AllowedSectors,
		MaxDebtEquity:  c.Strategy.MaxDebtEquity,
		MinROE:         c.Strategy.MinROE,
		MaxCorrelation: c.Strategy.MaxCorrelation,
	}
}

// TechnicalRules materializa las reglas de la capa 2.
func (c *Config) TechnicalRules() domain.TechnicalRules {
	return domain.TechnicalRules{
		RSIMin:            c.Strategy.RSIMin,
		RSIMax:            c.Strategy.RSIMax,
		MinVolumeRatio:    c.Strategy.MinVolumeRatio,
		MaxDistFrom52WLow: c.Strategy.MaxDistFrom52WLow,
	}
}

// SpreadParams materializa las ventanas de la capa 3.
func (c *Config) SpreadParams() domain.SpreadParams {
	return domain.SpreadParams{
		CreditDeltaMin:     c.Strategy.CreditDeltaMin,
		CreditDeltaMax:     c.Strategy.CreditDeltaMax,
		DebitDeltaMin:      c.Strategy.DebitDeltaMin,
		DebitDeltaMax:      c.Strategy.DebitDeltaMax,
		WidthMin:           c.Strategy.WidthMin,
		WidthMax:           c.Strategy.WidthMax,
		CreditDTEMin:       c.Strategy.CreditDTEMin,
		CreditDTEMax:       c.Strategy.CreditDTEMax,
		DebitDTEMin:        c.Strategy.DebitDTEMin,
		DebitDTEMax:        c.Strategy.DebitDTEMax,
		CreditMinTheta:     c.Strategy.CreditMinTheta,
		DebitMinTheta:      c.Strategy.DebitMinTheta,
		CreditMinIVPct:     c.Strategy.CreditMinIVPct,
		DebitIVPctMin:      c.Strategy.DebitIVPctMin,
		DebitIVPctMax:      c.Strategy.DebitIVPctMax,
		MaxGamma:           c.Strategy.MaxGamma,
		MinPremiumWidthPct: c.Strategy.MinPremiumWidthPct,
		MinRewardRisk:      c.Strategy.MinRewardRisk,
	}
}

// Validate chequea rangos que harían al scanner operar mal en silencio.
// Un error aquí es fatal al arrancar.
func (c *Config) Validate() error {
	if len(c.Scanner.Universe) == 0 {
		return fmt.Errorf("config.Validate: universe vacío")
	}
	if c.Scanner.SpreadThreshold <= 0 {
		return fmt.Errorf("config.Validate: spread_threshold %.2f debe ser > 0", c.Scanner.SpreadThreshold)
	}
	if d := c.Scanner.SpreadDirection; d != "positive" && d != "negative" {
		return fmt.Errorf("config.Validate: spread_direction %q inválida", d)
	}
	if c.Strategy.PEMin >= c.Strategy.PEMax {
		return fmt.Errorf("config.Validate: banda P/E [%.1f, %.1f] invertida", c.Strategy.PEMin, c.Strategy.PEMax)
	}
	if c.Strategy.CreditDeltaMin >= c.Strategy.CreditDeltaMax {
		return fmt.Errorf("config.Validate: ventana de delta credit [%.2f, %.2f] invertida",
			c.Strategy.CreditDeltaMin, c.Strategy.CreditDeltaMax)
	}
	if c.Strategy.DebitDeltaMin >= c.Strategy.DebitDeltaMax {
		return fmt.Errorf("config.Validate: ventana de delta debit [%.2f, %.2f] invertida",
			c.Strategy.DebitDeltaMin, c.Strategy.DebitDeltaMax)
	}
	if c.Strategy.Capital <= 0 {
		return fmt.Errorf("config.Validate: capital %.0f debe ser > 0", c.Strategy.Capital)
	}
	if c.Strategy.MaxPositionSizePct <= 0 || c.Strategy.MaxPositionSizePct > 100 {
		return fmt.Errorf("config.Validate: max_position_size_pct %.1f fuera de (0, 100]", c.Strategy.MaxPositionSizePct)
	}
	if c.Strategy.EVThreshold < 0 {
		return fmt.Errorf("config.Validate: ev_threshold %.2f debe ser >= 0", c.Strategy.EVThreshold)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("MARKETDATA_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalMinutes <= 0 {
		cfg.Scanner.IntervalMinutes = 15
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = runtime.NumCPU() * 2
	}
	if cfg.Scanner.EqualWeightSymbol == "" {
		cfg.Scanner.EqualWeightSymbol = "RSP"
	}
	if cfg.Scanner.CapWeightSymbol == "" {
		cfg.Scanner.CapWeightSymbol = "SPY"
	}
	if cfg.Scanner.SpreadThreshold == 0 {
		cfg.Scanner.SpreadThreshold = 8.0
	}
	if cfg.Scanner.SpreadDirection == "" {
		cfg.Scanner.SpreadDirection = "positive"
	}
	if cfg.Scanner.LookbackDays <= 0 {
		cfg.Scanner.LookbackDays = 365
	}

	st := &cfg.Strategy
	if st.PEMin == 0 && st.PEMax == 0 {
		st.PEMin, st.PEMax = 8, 15
	}
	if st.MinMarketCapB == 0 {
		st.MinMarketCapB = 10
	}
	if len(st.AllowedSectors) == 0 {
		st.AllowedSectors = []string{
			"Financials", "Healthcare", "Consumer Staples",
			"Utilities", "Industrials",
		}
	}
	if st.MaxDebtEquity == 0 {
		st.MaxDebtEquity = 1.5
	}
	if st.MinROE == 0 {
		st.MinROE = 12
	}
	if st.MaxCorrelation == 0 {
		st.MaxCorrelation = -0.3
	}
	if st.BenchmarkETF == "" {
		st.BenchmarkETF = "MGK"
	}
	if st.RSIMin == 0 && st.RSIMax == 0 {
		st.RSIMin, st.RSIMax = 30, 45
	}
	if st.MinVolumeRatio == 0 {
		st.MinVolumeRatio = 1.0
	}
	if st.MaxDistFrom52WLow == 0 {
		st.MaxDistFrom52WLow = 10
	}

	defaults := domain.DefaultSpreadParams()
	if st.CreditDeltaMin == 0 && st.CreditDeltaMax == 0 {
		st.CreditDeltaMin, st.CreditDeltaMax = defaults.CreditDeltaMin, defaults.CreditDeltaMax
	}
	if st.DebitDeltaMin == 0 && st.DebitDeltaMax == 0 {
		st.DebitDeltaMin, st.DebitDeltaMax = defaults.DebitDeltaMin, defaults.DebitDeltaMax
	}
	if st.WidthMin == 0 && st.WidthMax == 0 {
		st.WidthMin, st.WidthMax = defaults.WidthMin, defaults.WidthMax
	}
	if st.CreditDTEMin == 0 && st.CreditDTEMax == 0 {
		st.CreditDTEMin, st.CreditDTEMax = defaults.CreditDTEMin, defaults.CreditDTEMax
	}
	if st.DebitDTEMin == 0 && st.DebitDTEMax == 0 {
		st.DebitDTEMin, st.DebitDTEMax = defaults.DebitDTEMin, defaults.DebitDTEMax
	}
	if st.CreditMinTheta == 0 {
		st.CreditMinTheta = defaults.CreditMinTheta
	}
	if st.DebitMinTheta == 0 {
		st.DebitMinTheta = defaults.DebitMinTheta
	}
	if st.CreditMinIVPct == 0 {
		st.CreditMinIVPct = defaults.CreditMinIVPct
	}
	if st.DebitIVPctMin == 0 && st.DebitIVPctMax == 0 {
		st.DebitIVPctMin, st.DebitIVPctMax = defaults.DebitIVPctMin, defaults.DebitIVPctMax
	}
	if st.MaxGamma == 0 {
		st.MaxGamma = defaults.MaxGamma
	}
	if st.MinPremiumWidthPct == 0 {
		st.MinPremiumWidthPct = defaults.MinPremiumWidthPct
	}
	if st.MinRewardRisk == 0 {
		st.MinRewardRisk = defaults.MinRewardRisk
	}

	if st.Capital == 0 {
		st.Capital = 10000
	}
	if st.MaxPositionSizePct == 0 {
		st.MaxPositionSizePct = 5
	}
	if st.MaxPositions == 0 {
		st.MaxPositions = 15
	}
	if st.MaxSectorPositions == 0 {
		st.MaxSectorPositions = 3
	}
	if st.EVThreshold == 0 {
		st.EVThreshold = 0.20
	}
	if st.RiskFreeRate == 0 {
		st.RiskFreeRate = 0.05
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "optbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
