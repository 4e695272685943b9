package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"socialdesk/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Security    Security    `json:"security"`
	Credential  Credential  `json:"credential"`
	Publish     Publish     `json:"publish"`
	Platforms   Platforms   `json:"platforms"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Security holds the per-installation master key protecting stored app
// secrets. A missing or short key is a fatal startup error, never a
// per-request one.
type Security struct {
	MasterKey string `json:"masterKey"`
}

// Credential tunes the token cache and its refresh lock. Token lifetimes
// are platform policy, so none of these are hardcoded.
type Credential struct {
	RefreshThresholdSeconds int `json:"refreshThresholdSeconds"`
	TTLMarginSeconds        int `json:"ttlMarginSeconds"`
	LockTTLSeconds          int `json:"lockTTLSeconds"`
	LockRetryCount          int `json:"lockRetryCount"`
	LockRetryDelayMillis    int `json:"lockRetryDelayMillis"`
	ContendWaitMillis       int `json:"contendWaitMillis"`
}

// Publish tunes the orchestrator's retry loop and outbound HTTP timeout.
type Publish struct {
	MaxAttempts        int `json:"maxAttempts"`
	BackoffBaseSeconds int `json:"backoffBaseSeconds"`
	HTTPTimeoutSeconds int `json:"httpTimeoutSeconds"`
}

// Platforms carries per-platform OAuth redirect configuration.
type Platforms struct {
	Weibo  PlatformOAuth `json:"weibo"`
	Wechat PlatformOAuth `json:"wechat"`
}

type PlatformOAuth struct {
	RedirectURI string `json:"redirectURI"`
}

var C Config

func init() {
	LoadConfig()
	applyDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func applyDefaults(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	if v := os.Getenv("MASTER_KEY"); v != "" {
		C.Security.MasterKey = v
	}

	if C.Credential.RefreshThresholdSeconds == 0 {
		C.Credential.RefreshThresholdSeconds = 300
	}
	if C.Credential.TTLMarginSeconds == 0 {
		C.Credential.TTLMarginSeconds = 300
	}
	if C.Credential.LockTTLSeconds == 0 {
		C.Credential.LockTTLSeconds = 10
	}
	if C.Credential.LockRetryCount == 0 {
		C.Credential.LockRetryCount = 3
	}
	if C.Credential.LockRetryDelayMillis == 0 {
		C.Credential.LockRetryDelayMillis = 100
	}
	if C.Credential.ContendWaitMillis == 0 {
		C.Credential.ContendWaitMillis = 250
	}

	if C.Publish.MaxAttempts == 0 {
		C.Publish.MaxAttempts = 3
	}
	if C.Publish.BackoffBaseSeconds == 0 {
		C.Publish.BackoffBaseSeconds = 2
	}
	if C.Publish.HTTPTimeoutSeconds == 0 {
		C.Publish.HTTPTimeoutSeconds = 10
	}
}

// RefreshThreshold returns the credential staleness margin as a duration.
func (c Credential) RefreshThreshold() time.Duration {
	return time.Duration(c.RefreshThresholdSeconds) * time.Second
}

func (c Credential) TTLMargin() time.Duration {
	return time.Duration(c.TTLMarginSeconds) * time.Second
}

func (c Credential) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c Credential) LockRetryDelay() time.Duration {
	return time.Duration(c.LockRetryDelayMillis) * time.Millisecond
}

func (c Credential) ContendWait() time.Duration {
	return time.Duration(c.ContendWaitMillis) * time.Millisecond
}

func (p Publish) BackoffBase() time.Duration {
	return time.Duration(p.BackoffBaseSeconds) * time.Second
}

func (p Publish) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSeconds) * time.Second
}
