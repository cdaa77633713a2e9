package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the relayer application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Chains     []ChainConfig    `mapstructure:"chains"`
	Relayer    RelayerConfig    `mapstructure:"relayer"`
	Gas        GasConfig        `mapstructure:"gas"`
	Rewards    RewardsConfig    `mapstructure:"rewards"`
	Auth       AuthConfig       `mapstructure:"auth"`
	IPFS       IPFSConfig       `mapstructure:"ipfs"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainConfig contains per-chain RPC and contract settings
type ChainConfig struct {
	Name              string `mapstructure:"name"`
	RPCURL            string `mapstructure:"rpc_url"`
	ChainID           int64  `mapstructure:"chain_id"`
	ForwarderContract string `mapstructure:"forwarder_contract"`
	NFTContract       string `mapstructure:"nft_contract"`
	TokenContract     string `mapstructure:"token_contract"`
	NativeSymbol      string `mapstructure:"native_symbol"`
}

// RelayerConfig contains the relayer identity and submission settings
type RelayerConfig struct {
	PrivateKey          string        `mapstructure:"private_key"`
	EncryptedKeyFile    string        `mapstructure:"encrypted_key_file"`
	KeyPassphrase       string        `mapstructure:"key_passphrase"`
	DefaultChainID      int64         `mapstructure:"default_chain_id"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	SubmitRetries       int           `mapstructure:"submit_retries"`
	MinBalanceWei       string        `mapstructure:"min_balance_wei"`
}

// GasConfig contains the static gas policy ceilings
type GasConfig struct {
	MaxGasPriceGwei   int64  `mapstructure:"max_gas_price_gwei"`
	MaxGasLimit       uint64 `mapstructure:"max_gas_limit"`
	ForwarderOverhead uint64 `mapstructure:"forwarder_overhead"`
}

// RewardsConfig contains reward claim settings
type RewardsConfig struct {
	MaxPerUserPerDay int `mapstructure:"max_per_user_per_day"`
	HistoryLimit     int `mapstructure:"history_limit"`
}

// AuthConfig contains session token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

// IPFSConfig contains NFT metadata storage settings
type IPFSConfig struct {
	APIURL     string `mapstructure:"api_url"`
	GatewayURL string `mapstructure:"gateway_url"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults. Write timeout must cover confirmation waits.
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "3m")
	viper.SetDefault("server.idle_timeout", "1m")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "relayer")

	// Relayer defaults
	viper.SetDefault("relayer.confirmation_timeout", "2m")
	viper.SetDefault("relayer.submit_retries", 3)
	viper.SetDefault("relayer.min_balance_wei", "100000000000000000")

	// Gas defaults
	viper.SetDefault("gas.max_gas_price_gwei", 50)
	viper.SetDefault("gas.max_gas_limit", 500000)
	viper.SetDefault("gas.forwarder_overhead", 50000)

	// Rewards defaults
	viper.SetDefault("rewards.max_per_user_per_day", 10)
	viper.SetDefault("rewards.history_limit", 50)

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.issuer", "gianky-relayer")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if len(config.Chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	for i, chain := range config.Chains {
		if chain.RPCURL == "" {
			return fmt.Errorf("chains[%d].rpc_url is required", i)
		}
		if chain.ChainID == 0 {
			return fmt.Errorf("chains[%d].chain_id is required", i)
		}
		if chain.ForwarderContract == "" {
			return fmt.Errorf("chains[%d].forwarder_contract is required", i)
		}
	}
	if config.Relayer.PrivateKey == "" && config.Relayer.EncryptedKeyFile == "" {
		return fmt.Errorf("relayer.private_key or relayer.encrypted_key_file is required")
	}
	if config.Relayer.DefaultChainID == 0 {
		config.Relayer.DefaultChainID = config.Chains[0].ChainID
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// Chain returns the chain config with the given chain ID, or nil
func (c *Config) Chain(chainID int64) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
