package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens when APP_ENV=dev and no secret is configured.
const DevJWTSecret = "dev-only-not-a-secret"

type MongoConfig struct {
	URI            string        `env:"URI" envDefault:"mongodb://localhost:27017"`
	Name           string        `env:"NAME" envDefault:"storefront"`
	Transactions   bool          `env:"TRANSACTIONS" envDefault:"false"`
	SelectTimeout  time.Duration `env:"SELECT_TIMEOUT" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	OpTimeout      time.Duration `env:"OP_TIMEOUT" envDefault:"10s"`
}

type Config struct {
	AppEnv         string        `env:"APP_ENV" envDefault:"dev"`
	Port           string        `env:"PORT" envDefault:"8080"`
	DBDSN          string        `env:"DB_DSN" envDefault:"storefront.db"`
	DocstoreDriver string        `env:"DOCSTORE_DRIVER" envDefault:"mongo"`
	Mongo          MongoConfig   `envPrefix:"MONGODB_"`
	TaxRate        float64       `env:"TAX_RATE" envDefault:"0.16"`
	InvoicePrefix  string        `env:"INVOICE_PREFIX" envDefault:"FAC"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LogFile        string        `env:"LOG_FILE"`
	CORSOrigins    string        `env:"CORS_ORIGINS" envDefault:"*"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	SeedDemo       bool          `env:"SEED_DEMO" envDefault:"false"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	cfg, err := parse(env.Options{})
	if err != nil {
		return Config{}, err
	}
	log.Printf("[config] PORT=%s DB_DSN=%s DOCSTORE_DRIVER=%s MONGODB_NAME=%s TAX_RATE=%.2f LOG_FILE=%s",
		cfg.Port, cfg.DBDSN, cfg.DocstoreDriver, cfg.Mongo.Name, cfg.TaxRate, cfg.LogFile)
	return cfg, nil
}

// FromMap parses vars as if they were the whole environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.DocstoreDriver = strings.ToLower(strings.TrimSpace(cfg.DocstoreDriver))
	if cfg.JWTSecret == "" && cfg.AppEnv == "dev" {
		cfg.JWTSecret = DevJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		errs = append(errs, fmt.Errorf("TAX_RATE must be in [0,1), got %v", c.TaxRate))
	}
	switch c.DocstoreDriver {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("DOCSTORE_DRIVER must be mongo or memory, got %q", c.DocstoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside APP_ENV=dev"))
	}
	if c.InvoicePrefix == "" {
		errs = append(errs, errors.New("INVOICE_PREFIX must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Origins splits CORS_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
