package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Gateway     GatewayConfig   `mapstructure:"gateway"`
	Payment     PaymentConfig   `mapstructure:"payment"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	LogLevel        string        `mapstructure:"logLevel"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GatewayConfig contains ClickPesa API settings
type GatewayConfig struct {
	BaseURL     string        `mapstructure:"baseUrl"`
	APIKey      string        `mapstructure:"apiKey"`
	HTTPTimeout time.Duration `mapstructure:"httpTimeout"` // seconds
}

// PaymentConfig contains transaction lifecycle settings
type PaymentConfig struct {
	MaxPollWindow      time.Duration `mapstructure:"maxPollWindow"`      // minutes
	GatewayCallTimeout time.Duration `mapstructure:"gatewayCallTimeout"` // seconds
}

// SchedulerConfig contains background sweep settings
type SchedulerConfig struct {
	PollInterval   time.Duration `mapstructure:"pollInterval"`   // seconds
	ExpiryInterval time.Duration `mapstructure:"expiryInterval"` // seconds
	BatchSize      int           `mapstructure:"batchSize"`
	Concurrency    int           `mapstructure:"concurrency"`
}
