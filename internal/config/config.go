package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultTemplate      = "ODOT Template.pdf"
	DefaultMaxUploadSize = 32 * 1024 * 1024 // 32MB across export + photos

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the converter
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Conversion configuration
	TemplatePath string // ODOT form template PDF
	CatalogPath  string // optional catalog artifact override
	WorkDir      string // directory MCP tools may read and write

	// Application configuration
	Version       string
	ServerName    string
	LogLevel      string
	MaxUploadSize int64 // Maximum request size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		TemplatePath:  DefaultTemplate,
		CatalogPath:   "",
		WorkDir:       currentDir,
		Version:       "1.0.0",
		ServerName:    "odot-converter",
		LogLevel:      DefaultLogLevel,
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.WorkDir != "" {
		if expandedPath, err := filepath.Abs(cfg.WorkDir); err == nil {
			cfg.WorkDir = expandedPath
		}
	}
	if cfg.TemplatePath != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplatePath); err == nil {
			cfg.TemplatePath = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("ODOT")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("template", cfg.TemplatePath)
	viper.SetDefault("catalog", cfg.CatalogPath)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxuploadsize", cfg.MaxUploadSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for the HTTP converter")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("template", cfg.TemplatePath, "Path to the ODOT form template PDF")
	pflag.String("catalog", cfg.CatalogPath, "Path to a field catalog artifact (uses the embedded catalog if empty)")
	pflag.String("workdir", cfg.WorkDir, "Directory MCP tools may read exports from and write reports to")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxuploadsize", cfg.MaxUploadSize, "Maximum request size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("template", pflag.Lookup("template"))
	_ = viper.BindPFlag("catalog", pflag.Lookup("catalog"))
	_ = viper.BindPFlag("workdir", pflag.Lookup("workdir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxuploadsize", pflag.Lookup("maxuploadsize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nODOT Converter - Fill ODOT daily report PDFs from HeadLight JSON exports\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --template=/srv/odot/template.pdf                 "+
			"# stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --template=/srv/odot/template.pdf   # HTTP converter\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081          # on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ODOT_MODE           Run mode\n")
		fmt.Fprintf(os.Stderr, "  ODOT_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  ODOT_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  ODOT_TEMPLATE       Form template path\n")
		fmt.Fprintf(os.Stderr, "  ODOT_CATALOG        Field catalog artifact path\n")
		fmt.Fprintf(os.Stderr, "  ODOT_WORKDIR        MCP work directory\n")
		fmt.Fprintf(os.Stderr, "  ODOT_LOGLEVEL       Log level\n")
		fmt.Fprintf(os.Stderr, "  ODOT_MAXUPLOADSIZE  Maximum request size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplatePath = viper.GetString("template")
	cfg.CatalogPath = viper.GetString("catalog")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxUploadSize = viper.GetInt64("maxuploadsize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate template path
	if c.TemplatePath == "" {
		return errors.New("template path cannot be empty")
	}

	// Validate work directory
	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}

	// Check if work directory exists, create if it doesn't
	if _, err := os.Stat(c.WorkDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.WorkDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create work directory %s: %w", c.WorkDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access work directory %s: %w", c.WorkDir, err)
	}

	// Validate max upload size
	if c.MaxUploadSize <= 0 {
		return errors.New("maximum upload size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Template: %s, WorkDir: %s, LogLevel: %s, MaxUploadSize: %d}",
		c.Mode, c.Host, c.Port, c.TemplatePath, c.WorkDir, c.LogLevel, c.MaxUploadSize)
}

// IsServerMode returns true if the converter is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the converter is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
