package core

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string `mapstructure:"env" validate:"required,oneof=DEV TEST QA PROD"`
		AppName      string `mapstructure:"appName" validate:"required"`
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Paging   PagingConfig   `mapstructure:"paging"`
		I18n     I18nConfig     `mapstructure:"i18n"`
	}

	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		Address         string        `mapstructure:"address" validate:"required"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
		BodyLimit       string        `mapstructure:"bodyLimit" validate:"required"`
		AllowAllOrigins bool          `mapstructure:"allowAllOrigins"`
		ServeStatic     bool          `mapstructure:"serveStatic"`
		StaticURL       string        `mapstructure:"staticURL" validate:"required_if=ServeStatic true"`
		StaticPath      string        `mapstructure:"staticPath" validate:"required_if=ServeStatic true"`
		DisableReqLogs  bool          `mapstructure:"disableReqLogs"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine" validate:"required,oneof=postgres inmem"`
		Host          string `mapstructure:"host" validate:"required"`
		Port          string `mapstructure:"port" validate:"required,numeric"`
		Name          string `mapstructure:"name" validate:"required,alphanum_"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	PagingConfig struct {
		DefaultLimit int `mapstructure:"defaultLimit" validate:"gt=0,ltefield=MaxLimit"`
		MaxLimit     int `mapstructure:"maxLimit" validate:"gt=0"`
	}

	I18nConfig struct {
		Locales []string `mapstructure:"locales" validate:"min=1,dive,oneof=en ru"`
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration of the environment named by $ENV (DEV by default).
// Values come from, in order of precedence: $<ENV>_* variables, config/.env.<env>, defaults.
func NewConfig() (*Config, error) {
	conf := viper.New()
	setDefaults(conf)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetDefault("env", env)
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	var c Config
	if err := conf.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return &c, c.Validate(NewValidator())
}

func (c *Config) Validate(validate *validator.Validate) error {
	return StructError(validate.Struct(c), "invalid config")
}

func setDefaults(conf *viper.Viper) {
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Journal")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8080")
	conf.SetDefault("server.readTimeout", 5*time.Second)
	conf.SetDefault("server.writeTimeout", 10*time.Second)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.bodyLimit", "1M")
	conf.SetDefault("server.allowAllOrigins", false)
	conf.SetDefault("server.serveStatic", false)
	conf.SetDefault("server.staticURL", "/static")
	conf.SetDefault("server.staticPath", "public")
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "journal")
	conf.SetDefault("database.user", "journal")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("paging.defaultLimit", 20)
	conf.SetDefault("paging.maxLimit", 100)

	conf.SetDefault("i18n.locales", []string{"en", "ru"})
}
