package metalworks

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/eringen/metalworks/content"
)

// MinSecretLength is the minimum length of the session and token secrets.
const MinSecretLength = 32

// SiteConfig holds all configuration for a metalworks site. LoadConfig fills
// it from the environment; zero values fall back to setDefaults.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" envDefault:"Metalworks"`
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	Description string `env:"SITE_DESCRIPTION"`
	Author      string `env:"SITE_AUTHOR"`

	Addr         string `env:"ADDR" envDefault:":3000"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/metalworks.db"`
	UploadsDir   string `env:"UPLOADS_DIR" envDefault:"data/uploads"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// AdminEmail and AdminPassword seed the first administrator account.
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@localhost"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	SessionSecret string `env:"ADMIN_SESSION_SECRET,required"`
	CookieSecure  bool   `env:"COOKIE_SECURE"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	APIRate   float64       `env:"API_RATE" envDefault:"10"`
	APIBurst  int           `env:"API_BURST" envDefault:"30"`

	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	RedisURL     string        `env:"REDIS_URL"`
	RedisChannel string        `env:"REDIS_CHANNEL" envDefault:"metalworks:events"`

	PublishSchedule string `env:"PUBLISH_SCHEDULE" envDefault:"*/5 * * * *"`
	BackupDir       string `env:"BACKUP_DIR"`
	BackupSchedule  string `env:"BACKUP_SCHEDULE" envDefault:"0 3 * * *"`
	BackupKeep      int    `env:"BACKUP_KEEP" envDefault:"7"`
}

// LoadConfig reads an optional .env file and parses the environment.
func LoadConfig(envFiles ...string) (SiteConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env file is fine; real environment variables win either way.
	_ = godotenv.Load(envFiles...)

	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("metalworks: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c SiteConfig) Validate() error {
	if len(c.SessionSecret) < MinSecretLength {
		return fmt.Errorf("metalworks: ADMIN_SESSION_SECRET must be at least %d bytes, got %d", MinSecretLength, len(c.SessionSecret))
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("metalworks: JWT_SECRET must be at least %d bytes, got %d", MinSecretLength, len(c.JWTSecret))
	}
	if c.AdminPassword != "" && len(c.AdminPassword) < content.MinPasswordLength {
		return fmt.Errorf("metalworks: ADMIN_PASSWORD must be at least %d characters", content.MinPasswordLength)
	}
	if c.BackupKeep < 0 {
		return fmt.Errorf("metalworks: BACKUP_KEEP must not be negative")
	}
	return nil
}

// BackupsEnabled reports whether scheduled snapshots are written.
func (c SiteConfig) BackupsEnabled() bool { return c.BackupDir != "" }

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Metalworks"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/metalworks.db"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "data/uploads"
	}
	if c.AdminEmail == "" {
		c.AdminEmail = "admin@localhost"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.APIRate <= 0 {
		c.APIRate = 10
	}
	if c.APIBurst <= 0 {
		c.APIBurst = 30
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.RedisChannel == "" {
		c.RedisChannel = content.DefaultRelayChannel
	}
	if c.PublishSchedule == "" {
		c.PublishSchedule = "*/5 * * * *"
	}
	if c.BackupSchedule == "" {
		c.BackupSchedule = "0 3 * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore makes the App use an already opened store instead of opening
// DatabasePath itself.
func WithStore(s *content.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithClock overrides the time source used by limiters and tokens.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
