package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		Provider       string // console | sendgrid | brevo
		SendgridAPIKey string
		BrevoAPIKey    string
		SendTimeout    time.Duration
		RetryAttempts  int
		RetryBackoff   time.Duration
	}

	RateLimitConfig struct {
		RedisURL string
		Requests int
		Window   time.Duration
	}

	EnrollmentConfig struct {
		UsernameAttempts       int
		DefaultRejectionReason string
	}

	Config struct {
		Env      string
		Build    string
		AppName  string
		Debug    bool
		TestMode bool

		SecretKey           string
		FrontendBaseURL     string
		FromName            string
		FromEmail           string
		RollbarToken        string
		CommonPasswordsPath string

		Server     ServerConfig
		Database   DatabaseConfig
		Email      EmailConfig
		RateLimit  RateLimitConfig
		Enrollment EnrollmentConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) InMemory() bool {
	return c.Engine == "memory"
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.FromName, Address: c.FromEmail}
}

// devSecretKey signs tokens outside PROD. PROD refuses to start with it.
const devSecretKey = "k2#n8z!wq0m@vx5)e^rbt7(yf=ds1&ho4$gp9*uc3l6+ja"

// NewConfig reads the configuration of the current ENV (DEV by default) from the environment,
// after loading config/.env.<env> if it exists.
func NewConfig() *Config {
	conf, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func loadConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "WOEC")
	v.SetDefault("secretKey", devSecretKey)
	v.SetDefault("frontendBaseURL", "http://localhost:5000")
	v.SetDefault("fromName", "WOEC - Wis Online English Course")
	v.SetDefault("fromEmail", "noreply@woeconline.com")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("commonPasswordsPath", "") // empty: list embedded in appfs.FS

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "woec")
	v.SetDefault("database.user", "woec")
	v.SetDefault("database.password", "woec")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.provider", "console")
	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.brevoAPIKey", "")
	v.SetDefault("email.sendTimeout", 10*time.Second)
	v.SetDefault("email.retryAttempts", 5)
	v.SetDefault("email.retryBackoff", 30*time.Second)

	v.SetDefault("rateLimit.redisURL", "")
	v.SetDefault("rateLimit.requests", 5)
	v.SetDefault("rateLimit.window", time.Minute)

	v.SetDefault("enrollment.usernameAttempts", 5)
	v.SetDefault("enrollment.defaultRejectionReason", "We have reached our capacity for this enrollment period.")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("godotenv(%s): %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("os.Stat(%s): %w", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                 env,
		Build:               v.GetString("build"),
		AppName:             v.GetString("appName"),
		Debug:               v.GetBool("debug"),
		TestMode:            v.GetBool("testMode"),
		SecretKey:           v.GetString("secretKey"),
		FrontendBaseURL:     strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		FromName:            v.GetString("fromName"),
		FromEmail:           v.GetString("fromEmail"),
		RollbarToken:        v.GetString("rollbarToken"),
		CommonPasswordsPath: v.GetString("commonPasswordsPath"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(v.GetString("email.provider")),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
			BrevoAPIKey:    v.GetString("email.brevoAPIKey"),
			SendTimeout:    v.GetDuration("email.sendTimeout"),
			RetryAttempts:  v.GetInt("email.retryAttempts"),
			RetryBackoff:   v.GetDuration("email.retryBackoff"),
		},
		RateLimit: RateLimitConfig{
			RedisURL: v.GetString("rateLimit.redisURL"),
			Requests: v.GetInt("rateLimit.requests"),
			Window:   v.GetDuration("rateLimit.window"),
		},
		Enrollment: EnrollmentConfig{
			UsernameAttempts:       v.GetInt("enrollment.usernameAttempts"),
			DefaultRejectionReason: v.GetString("enrollment.defaultRejectionReason"),
		},
	}

	if env == "PROD" {
		if err := conf.checkProd(); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// checkProd makes sure settings that have no safe default are set.
func (c *Config) checkProd() error {
	checkers := []vala.Checker{
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		notDevSecretKey(c.SecretKey),
		vala.StringNotEmpty(c.FromEmail, "fromEmail"),
		vala.StringNotEmpty(c.RollbarToken, "rollbarToken"),
	}
	switch c.Email.Provider {
	case "sendgrid":
		checkers = append(checkers, vala.StringNotEmpty(c.Email.SendgridAPIKey, "email.sendgridAPIKey"))
	case "brevo":
		checkers = append(checkers, vala.StringNotEmpty(c.Email.BrevoAPIKey, "email.brevoAPIKey"))
	default:
		// the console provider logs message bodies, credentials included
		checkers = append(checkers, func() (bool, string) {
			return false, fmt.Sprintf("Parameter must be sendgrid or brevo: email.provider(%s)", c.Email.Provider)
		})
	}
	return vala.BeginValidation().Validate(checkers...).Check()
}

func notDevSecretKey(key string) vala.Checker {
	return func() (bool, string) {
		return key != devSecretKey, "Parameter holds the development value: secretKey"
	}
}
