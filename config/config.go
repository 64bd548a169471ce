package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey" validate:"required"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL" validate:"gt=0"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL" validate:"gt=0"`
}

type OTPConfig struct {
	Length           int           `mapstructure:"length" validate:"gte=4,lte=10"`
	VerifyEmailTTL   time.Duration `mapstructure:"verifyEmailTTL" validate:"gt=0"`
	ResetPasswordTTL time.Duration `mapstructure:"resetPasswordTTL" validate:"gt=0"`
	VerifyPhoneTTL   time.Duration `mapstructure:"verifyPhoneTTL" validate:"gt=0"`
	LoginTTL         time.Duration `mapstructure:"loginTTL" validate:"gt=0"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloudName"`
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
	Folder    string `mapstructure:"folder"`
}

type FirebaseConfig struct {
	CredentialsFile string `mapstructure:"credentialsFile"`
	ProjectID       string `mapstructure:"projectID"`
}

type OAuthProvider struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	CallbackURL  string `mapstructure:"callbackURL"`
}

type RateLimitConfig struct {
	AuthRequests int           `mapstructure:"authRequests" validate:"gt=0"`
	Window       time.Duration `mapstructure:"window" validate:"gt=0"`
	OTPPerWindow int           `mapstructure:"otpPerWindow" validate:"gt=0"`
	OTPWindow    time.Duration `mapstructure:"otpWindow" validate:"gt=0"`
	UserCacheTTL time.Duration `mapstructure:"userCacheTTL"`
}

type Config struct {
	Mode   string `mapstructure:"mode" validate:"oneof=development production test"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort" validate:"required"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		MetricsPath    string        `mapstructure:"metricsPath"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host" validate:"required"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db" validate:"required"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Mongo struct {
			URI string `mapstructure:"uri" validate:"required"`
			DB  string `mapstructure:"db" validate:"required"`
		} `mapstructure:"mongo"`
		Redis struct {
			URL string `mapstructure:"url" validate:"required"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	JWT     JWTConfig  `mapstructure:"jwt"`
	OTP     OTPConfig  `mapstructure:"otp"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
	Storage struct {
		Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	} `mapstructure:"storage"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	OAuth    struct {
		Google   OAuthProvider `mapstructure:"google"`
		Facebook OAuthProvider `mapstructure:"facebook"`
		Github   OAuthProvider `mapstructure:"github"`
	} `mapstructure:"oauth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Gateway   struct {
		Port    string `mapstructure:"port"`
		AuthURL string `mapstructure:"authURL"`
		BlogURL string `mapstructure:"blogURL"`
	} `mapstructure:"gateway"`
}

// IsProduction reports whether stack traces and other internals must be hidden.
func (c Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// JWT_SECRETKEY overrides jwt.secretKey and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err = Validate(config); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate checks required secrets and positive durations.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	return nil
}
