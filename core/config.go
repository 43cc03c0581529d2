package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string `mapstructure:"-"`
		TestMode         bool   `mapstructure:"testMode"`
		Debug            bool   `mapstructure:"debug"`
		Build            string `mapstructure:"build"`
		AppName          string `mapstructure:"appName"`
		SecretKey        string `mapstructure:"secretKey"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		RollbarToken     string `mapstructure:"rollbarToken"`
		SendgridAPIKey   string `mapstructure:"sendgridAPIKey"`
		WorkDir          string `mapstructure:"-"`

		Server     ServerConfig     `mapstructure:"server"`
		Database   DatabaseConfig   `mapstructure:"database"`
		Redis      RedisConfig      `mapstructure:"redis"`
		Enrollment EnrollmentConfig `mapstructure:"enrollment"`
	}

	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Addr               string        `mapstructure:"addr"`
		DebugHost          string        `mapstructure:"debugHost"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		DisableRequestLogs bool          `mapstructure:"disableRequestLogs"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | pgx | sqlite3
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		MaxOpenConns  int    `mapstructure:"maxOpenConns"`
	}

	RedisConfig struct {
		Disabled bool          `mapstructure:"disabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	}

	EnrollmentConfig struct {
		MatriculePrefix   string        `mapstructure:"matriculePrefix"`
		MatriculeAttempts int           `mapstructure:"matriculeAttempts"`
		TxTimeout         time.Duration `mapstructure:"txTimeout"`
	}
)

// Address returns the "host:port" of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// IsSQLite reports whether the configured engine is the embedded SQLite driver.
func (dc DatabaseConfig) IsSQLite() bool {
	return dc.Engine == "sqlite3"
}

// DefaultFromAddress parses DefaultFromEmail, falling back to a bare address named after the app.
func (c *Config) DefaultFromAddress() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Kelasi")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "Kelasi <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableRequestLogs", false)
	v.SetDefault("server.jwtExpirationDelta", 12*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "kelasi")
	v.SetDefault("database.user", "kelasi")
	v.SetDefault("database.password", "kelasi")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 10)

	v.SetDefault("redis.disabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("enrollment.matriculePrefix", "KEL")
	v.SetDefault("enrollment.matriculeAttempts", 5)
	v.SetDefault("enrollment.txTimeout", 30*time.Second)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the env name, eg. DEV_DATABASE_HOST.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	conf.Env = env
	conf.WorkDir = wd

	if conf.Enrollment.MatriculeAttempts <= 0 {
		return nil, fmt.Errorf("enrollment.matriculeAttempts must be > 0 (got %d)", conf.Enrollment.MatriculeAttempts)
	}
	return conf, nil
}
