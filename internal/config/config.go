package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	App struct {
		Name string
	}
	Server struct {
		Addr          string
		MaxConcurrent int
		ReadTimeout   time.Duration
		WriteTimeout  time.Duration
		IdleTimeout   time.Duration
	}
	Site struct {
		BaseDir string
	}
	Database struct {
		Driver   string
		Path     string
		DSN      string
		Host     string
		Port     string
		Name     string
		User     string
		Password string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Upload struct {
		Dir string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Mirror struct {
		MaxConcurrent int
	}
	Log struct {
		Level string
		File  string
	}
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads configuration from environment variables and an optional
// default-config.json in the working directory or ./config.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return load(viper.New(), ".", "config")
}

func load(v *viper.Viper, paths ...string) (Config, error) {
	v.SetEnvPrefix("HUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("default-config")
	v.SetConfigType("json")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hunter-web")
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.maxconcurrent", 3)
	v.SetDefault("server.readtimeout", 20*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.idletimeout", 120*time.Second)
	v.SetDefault("site.basedir", "./www")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/hunter.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 60)
	v.SetDefault("upload.dir", "data/uploads")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "hunter-uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("mirror.maxconcurrent", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("server.maxconcurrent must be positive, got %d", c.Server.MaxConcurrent)
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.tokenttlminutes must be positive, got %d", c.Auth.TokenTTLMinutes)
	}
	return nil
}

// DataSource returns the driver specific connection string.
func (c Config) DataSource() string {
	if c.Database.Driver == DriverSQLite {
		return c.Database.Path
	}
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// TokenTTL is the lifetime of session tokens.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// StorageEnabled reports whether uploads are mirrored to object storage.
func (c Config) StorageEnabled() bool {
	return strings.TrimSpace(c.Storage.Bucket) != ""
}

// loadDotEnv exports the variables of an env file. Variables already set in
// the environment win; a missing file is not an error.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
