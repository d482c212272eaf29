package config // package config loads application configuration from environment variables

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  It is assembled once at
// process start and handed to the router, handlers and services by value;
// nothing below cmd/ reads the environment directly.  The admin defaults
// are intentionally weak so a fresh checkout runs without a .env file; any
// real deployment must override ADMIN_PASSWORD and ADMIN_TOKEN.
type Config struct {
	Env            string        `envconfig:"APP_ENV" default:"dev"`
	Port           string        `envconfig:"PORT" default:"3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	DSN            string        `envconfig:"DB_DSN" default:"root@tcp(127.0.0.1:3306)/movies"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`

	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"password"`
	AdminToken    string `envconfig:"ADMIN_TOKEN" default:"admin-token"`

	MoviesFile string `envconfig:"MOVIES_FILE" default:"movies.json"` // import source
	PostersDir string `envconfig:"POSTERS_DIR" default:"Pictures"`    // upload target, served at /Pictures

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	AMQP      AMQPConfig
}

// AMQPConfig configures the review event publisher and consumer.  An empty
// URL disables both.
type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Queue    string `envconfig:"AMQP_REVIEW_QUEUE" default:"review.created"`
	LogDir   string `envconfig:"AMQP_LOG_DIR" default:"logs"`
	Prefetch int    `envconfig:"AMQP_PREFETCH" default:"50"`
}

// Load reads an optional .env file and then the process environment.  A
// missing .env is not an error; a malformed value (e.g. a non-numeric
// BCRYPT_COST) is.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.adminDefaults()
	cfg.RateLimit.normalize()
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 30 * time.Second
	}
	return cfg, nil
}

// adminDefaults treats blank admin settings as unset, so ADMIN_TOKEN= in a
// .env file falls back to the default instead of locking the admin routes.
func (c *Config) adminDefaults() {
	fallback := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fallback(&c.AdminUsername, "admin")
	fallback(&c.AdminPassword, "password")
	fallback(&c.AdminToken, "admin-token")
}

// IsDev reports whether the service runs in the development environment.
func (c Config) IsDev() bool { return c.Env == "dev" }
