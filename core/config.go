package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Conf is the application configuration singleton. It is set once by LoadConfig
// at startup and treated as read-only afterwards.
var Conf *Config

type (
	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Port               string        `mapstructure:"port"`
		DebugHost          string        `mapstructure:"debugHost"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	Config struct {
		Debug    bool   `mapstructure:"debug"`
		TestMode bool   `mapstructure:"testMode"`
		Env      string `mapstructure:"env"`
		Build    string `mapstructure:"build"`
		AppName  string `mapstructure:"appName"`

		SecretKey       string `mapstructure:"secretKey"`
		FrontendBaseURL string `mapstructure:"frontendBaseURL"`
		DefaultFromName string `mapstructure:"defaultFromName"`
		DefaultFromAddr string `mapstructure:"defaultFromAddr"`
		SendgridApiKey  string `mapstructure:"sendgridApiKey"`
		RollbarToken    string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

// LoadConfig reads configuration from an optional config/.env.<env> file and from
// ENV-prefixed environment variables, on top of sane defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Ruhusa")
	v.SetDefault("secretKey", "5up3r-53cr3t-k3y-ch4ng3-m3!")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Ruhusa")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 20*time.Second)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "ruhusa")
	v.SetDefault("database.user", "ruhusa")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
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
	Conf = conf
	return conf, nil
}

// Getwd returns the working directory or "." as a last resort.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
