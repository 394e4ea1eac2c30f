// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Engine names accepted by ENGINE.
const (
	EngineKKDAI = "kkdai"
	EngineYTDLP = "yt-dlp"
)

// DefaultInstances are the known public Invidious instances, in preference order.
var DefaultInstances = []string{
	"https://yewtu.be",
	"https://invidious.snopyta.org",
	"https://invidious.kavin.rocks",
	"https://invidious.jingl.xyz",
}

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8000"`
	Debug           bool          `env:"DEBUG" envDefault:"false"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"web"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	// Primary engine
	Engine             string `env:"ENGINE" envDefault:"kkdai"`
	YTDLPPath          string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	YTDLPFormat        string `env:"YTDLP_FORMAT" envDefault:"bestaudio[acodec=opus]/bestaudio[ext=webm]/bestaudio"`
	YTDLPTimeout       int    `env:"YTDLP_TIMEOUT" envDefault:"30"`
	YTDLPMaxConcurrent int    `env:"YTDLP_MAX_CONCURRENT" envDefault:"50"`

	// Fallback (Invidious)
	Instances        []string      `env:"INVIDIOUS_INSTANCES"`
	InstanceRate     float64       `env:"INVIDIOUS_RATE_LIMIT" envDefault:"5"`
	ProbeTimeout     time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
	APITimeout       time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	DiscoveryWorkers int           `env:"DISCOVERY_WORKERS" envDefault:"4"`

	// Embed hosts handed to the player
	EmbedHost         string `env:"EMBED_HOST" envDefault:"www.youtube.com"`
	FallbackEmbedHost string `env:"FALLBACK_EMBED_HOST" envDefault:"yewtu.be"`

	// Proxy settings
	GlobalProxies      []string `env:"GLOBAL_PROXIES"`
	TransportRoutesRaw string   `env:"TRANSPORT_ROUTES"`
	UTLSDomains        []string `env:"UTLS_DOMAINS"`
	TransportRoutes    []TransportRoute

	// Search
	RedisURL       string        `env:"REDIS_URL"`
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"10m"`

	// Inbound rate limiting per client address
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// TransportRoute defines URL-specific proxy routing.
type TransportRoute struct {
	URLPattern string
	Proxy      string
	DisableSSL bool
	Direct     bool // If true, bypass global proxy and connect directly
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
	return parse(env.Options{})
}

// LoadFrom builds a configuration from the given variables only.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}

	if len(cfg.Instances) == 0 {
		cfg.Instances = append([]string(nil), DefaultInstances...)
	}
	for i, inst := range cfg.Instances {
		cfg.Instances[i] = strings.TrimRight(strings.TrimSpace(inst), "/")
	}

	cfg.TransportRoutes = parseTransportRoutes(cfg.TransportRoutesRaw)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine {
	case EngineKKDAI, EngineYTDLP:
	default:
		return fmt.Errorf("unsupported ENGINE %q (want %s or %s)", c.Engine, EngineKKDAI, EngineYTDLP)
	}
	if c.YTDLPTimeout <= 0 {
		return fmt.Errorf("YTDLP_TIMEOUT must be positive, got %d", c.YTDLPTimeout)
	}
	if c.YTDLPMaxConcurrent < 1 {
		c.YTDLPMaxConcurrent = 1
	}
	if c.DiscoveryWorkers < 1 {
		c.DiscoveryWorkers = 1
	}
	return nil
}

// EngineTimeout is the per-call timeout applied to the primary engine.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.YTDLPTimeout) * time.Second
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultInstance is the instance a fresh fallback backend binds to.
func (c *Config) DefaultInstance() string {
	if len(c.Instances) == 0 {
		return DefaultInstances[0]
	}
	return c.Instances[0]
}

// parseTransportRoutes parses the TRANSPORT_ROUTES env var.
// Format: {URL=pattern, PROXY=url, DISABLE_SSL=true}, {URL=pattern2}
func parseTransportRoutes(s string) []TransportRoute {
	if s == "" {
		return nil
	}

	var routes []TransportRoute
	s = strings.TrimSpace(s)

	parts := strings.Split(s, "}, {")
	for _, part := range parts {
		part = strings.Trim(part, "{} ")
		if part == "" {
			continue
		}

		route := TransportRoute{}
		for _, field := range strings.Split(part, ", ") {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 {
				continue
			}
			value := strings.TrimSpace(kv[1])

			switch strings.ToUpper(strings.TrimSpace(kv[0])) {
			case "URL":
				route.URLPattern = value
			case "PROXY":
				route.Proxy = value
			case "DISABLE_SSL":
				route.DisableSSL = strings.EqualFold(value, "true")
			case "DIRECT":
				route.Direct = strings.EqualFold(value, "true")
			}
		}
		if route.URLPattern != "" {
			routes = append(routes, route)
		}
	}

	return routes
}
