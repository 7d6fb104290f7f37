package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dlclark/regexp2"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Admin password policy: at least 8 characters with a letter and a digit.
// Lookaheads require regexp2; the stdlib engine rejects them.
const adminPasswordPattern = `^(?=.*[A-Za-z])(?=.*\d).{8,}$`

var (
	ErrMissingAdminSecret = errors.New("no admin password configured (set ADMIN_PASSWORD or api.admin_password_hash)")
	ErrWeakAdminPassword  = errors.New("the admin password must be at least 8 characters and contain a letter and a digit")
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Raffle   *RaffleConfig   `mapstructure:"raffle"`
	Notifier *NotifierConfig `mapstructure:"notifier"`

	v *viper.Viper
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AdminPasswordHash  string   `mapstructure:"admin_password_hash"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RaffleConfig struct {
	Title               string   `mapstructure:"title"`
	Prize               string   `mapstructure:"prize"`
	Price               float64  `mapstructure:"price"`
	Rules               []string `mapstructure:"rules"`
	PixKey              string   `mapstructure:"pix_key"`
	ReservationTTLHours int      `mapstructure:"reservation_ttl_hours"`
}

type NotifierConfig struct {
	// Sink is "whatsapp", "telegram" or "log".
	Sink           string `mapstructure:"sink"`
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	var conf AppConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := resolveAdminSecret(conf.API); err != nil {
		return nil, err
	}

	conf.v = v

	return &conf, nil
}

// WatchRaffle hot-reloads the raffle section (title, prize, price, rules)
// when the config file changes on disk, so copy edits don't need a restart.
// Everything else keeps requiring one.
func (c *AppConfig) WatchRaffle(onChange func(RaffleConfig)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.applyRaffleReload(e.Name, onChange)
	})
	c.v.WatchConfig()
}

func (c *AppConfig) applyRaffleReload(file string, onChange func(RaffleConfig)) {
	var updated AppConfig
	if err := c.v.Unmarshal(&updated); err != nil {
		zap.L().Error("config reload failed", zap.String("file", file), zap.Error(err))
		return
	}
	if updated.Raffle == nil {
		zap.L().Error("config reload dropped the raffle section, keeping the old one", zap.String("file", file))
		return
	}

	zap.L().Info("raffle config reloaded", zap.String("file", file))
	onChange(*updated.Raffle)
}

// resolveAdminSecret sources the admin secret. A plaintext ADMIN_PASSWORD in
// the environment wins, is checked against the policy and stored hashed;
// otherwise the config must already carry a bcrypt hash.
func resolveAdminSecret(api *APIConfig) error {
	if plain := os.Getenv("ADMIN_PASSWORD"); plain != "" {
		re := regexp2.MustCompile(adminPasswordPattern, regexp2.None)
		ok, err := re.MatchString(plain)
		if err != nil {
			return fmt.Errorf("re.MatchString -> %w", err)
		}
		if !ok {
			return ErrWeakAdminPassword
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
		}
		api.AdminPasswordHash = string(hash)

		return nil
	}

	if api.AdminPasswordHash == "" {
		return ErrMissingAdminSecret
	}

	return nil
}
