package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// Config es la configuración completa del scanner.
type Config struct {
	Scanner   ScannerConfig   `yaml:"scanner"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	API       APIConfig       `yaml:"api"`
	Notify    NotifyConfig    `yaml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ScannerConfig controla los loops y los umbrales de detección.
type ScannerConfig struct {
	ScanIntervalSeconds      int     `yaml:"scan_interval_seconds"`
	MarketRefreshSeconds     int     `yaml:"market_refresh_seconds"`
	ReferenceIntervalSeconds int     `yaml:"reference_interval_seconds"`
	ReferenceRetrySeconds    int     `yaml:"reference_retry_seconds"`
	ReferenceMaxAgeHours     int     `yaml:"reference_max_age_hours"`
	ReferenceConcurrency     int     `yaml:"reference_concurrency"`
	StaleDataMaxAgeMs        int     `yaml:"stale_data_max_age_ms"`
	MinProfitThreshold       float64 `yaml:"min_profit_threshold"`    // $/share, mercado único
	MinLiquidityThreshold    float64 `yaml:"min_liquidity_threshold"` // shares en top of book
	CrossMinProfit           float64 `yaml:"cross_min_profit"`
	DefaultLegSize           float64 `yaml:"default_leg_size"`
	EnableCross              *bool   `yaml:"enable_cross"` // nil = true
	Stream                   *bool   `yaml:"stream"`       // nil = true
}

// DiscoveryConfig decide qué mercados se escanean.
type DiscoveryConfig struct {
	Assets            []string `yaml:"assets"`
	Intervals         []string `yaml:"intervals"` // 15m, 30m, 1h, 4h, 1d
	Lookahead         int      `yaml:"lookahead"`
	IncludeGeneral    bool     `yaml:"include_general"`
	MinLiquidity      float64  `yaml:"min_liquidity"`
	MaxGeneralMarkets int      `yaml:"max_general_markets"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase                 string `yaml:"clob_base"`
	GammaBase                string `yaml:"gamma_base"`
	CryptoBase               string `yaml:"crypto_base"`
	WSURL                    string `yaml:"ws_url"`
	MaxConcurrentBookFetches int    `yaml:"max_concurrent_book_fetches"`
}

// NotifyConfig controla el dispatcher y los canales de notificación.
type NotifyConfig struct {
	CooldownSeconds int            `yaml:"cooldown_seconds"` // negativo desactiva
	QueueSize       int            `yaml:"queue_size"`
	Telegram        TelegramConfig `yaml:"telegram"`
}

// TelegramConfig se activa cuando hay token y chat id.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Enabled indica si hay credenciales suficientes.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // vacío = desactivado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
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

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.ScanIntervalSeconds) * time.Second
}

// MarketRefreshInterval devuelve cada cuánto se redescubren mercados.
func (c *Config) MarketRefreshInterval() time.Duration {
	return time.Duration(c.Scanner.MarketRefreshSeconds) * time.Second
}

// ReferenceInterval devuelve cada cuánto se intentan cargar referencias.
func (c *Config) ReferenceInterval() time.Duration {
	return time.Duration(c.Scanner.ReferenceIntervalSeconds) * time.Second
}

// ReferenceRetry devuelve la espera mínima antes de repetir una referencia no disponible.
func (c *Config) ReferenceRetry() time.Duration {
	return time.Duration(c.Scanner.ReferenceRetrySeconds) * time.Second
}

// ReferenceMaxAge devuelve cuánto se guardan referencias de mercados resueltos.
func (c *Config) ReferenceMaxAge() time.Duration {
	return time.Duration(c.Scanner.ReferenceMaxAgeHours) * time.Hour
}

// StaleMaxAge devuelve la edad máxima de un precio cacheado.
func (c *Config) StaleMaxAge() time.Duration {
	return time.Duration(c.Scanner.StaleDataMaxAgeMs) * time.Millisecond
}

// NotifyCooldown devuelve el cooldown por oportunidad. Negativo = sin cooldown.
func (c *Config) NotifyCooldown() time.Duration {
	return time.Duration(c.Notify.CooldownSeconds) * time.Second
}

// CrossEnabled indica si se corre la detección cross-market.
func (c *Config) CrossEnabled() bool {
	return c.Scanner.EnableCross == nil || *c.Scanner.EnableCross
}

// StreamEnabled indica si se usa el websocket además del polling.
func (c *Config) StreamEnabled() bool {
	return c.Scanner.Stream == nil || *c.Scanner.Stream
}

// Intervals convierte los intervalos configurados. Los desconocidos se ignoran.
func (c *Config) Intervals() []domain.Interval {
	out := make([]domain.Interval, 0, len(c.Discovery.Intervals))
	for _, s := range c.Discovery.Intervals {
		if iv := domain.ParseInterval(s); iv != domain.IntervalUnknown {
			out = append(out, iv)
		}
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.Notify.Telegram.ChatID = id
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	s := &cfg.Scanner
	if s.ScanIntervalSeconds <= 0 {
		s.ScanIntervalSeconds = 5
	}
	if s.MarketRefreshSeconds <= 0 {
		s.MarketRefreshSeconds = 60
	}
	if s.ReferenceIntervalSeconds <= 0 {
		s.ReferenceIntervalSeconds = 30
	}
	if s.ReferenceRetrySeconds <= 0 {
		s.ReferenceRetrySeconds = 15
	}
	if s.ReferenceMaxAgeHours <= 0 {
		s.ReferenceMaxAgeHours = 24
	}
	if s.ReferenceConcurrency <= 0 {
		s.ReferenceConcurrency = 4
	}
	if s.StaleDataMaxAgeMs <= 0 {
		s.StaleDataMaxAgeMs = 60000
	}
	if s.MinProfitThreshold <= 0 {
		s.MinProfitThreshold = 0.005
	}
	if s.MinLiquidityThreshold <= 0 {
		s.MinLiquidityThreshold = 100
	}
	if s.CrossMinProfit <= 0 {
		s.CrossMinProfit = 0.01
	}
	if s.DefaultLegSize <= 0 {
		s.DefaultLegSize = 1000
	}

	d := &cfg.Discovery
	if len(d.Assets) == 0 {
		d.Assets = []string{"btc", "eth"}
	}
	if len(d.Intervals) == 0 {
		d.Intervals = []string{"15m", "1h", "4h"}
	}
	if d.Lookahead < 0 {
		d.Lookahead = 0
	}
	if d.MinLiquidity <= 0 {
		d.MinLiquidity = 1000
	}
	if d.MaxGeneralMarkets <= 0 {
		d.MaxGeneralMarkets = 500
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.CryptoBase == "" {
		cfg.API.CryptoBase = "https://polymarket.com"
	}
	if cfg.API.WSURL == "" {
		cfg.API.WSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}
	if cfg.API.MaxConcurrentBookFetches <= 0 {
		cfg.API.MaxConcurrentBookFetches = 8
	}

	if cfg.Notify.CooldownSeconds == 0 {
		cfg.Notify.CooldownSeconds = 60
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que dejarían al scanner sin nada que hacer.
func (c *Config) validate() error {
	if len(c.Intervals()) == 0 && !c.Discovery.IncludeGeneral {
		return fmt.Errorf("no valid discovery intervals in %v", c.Discovery.Intervals)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
