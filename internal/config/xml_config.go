// Package config provides XML-based configuration management for the
// dashboard server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SentimentDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Analysis engine configuration
	Analysis AnalysisConfig `xml:"Analysis"`

	// Session processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Security configuration
	Security SecurityConfig `xml:"Security"`

	// Dashboard text
	Dashboard DashboardConfig `xml:"Dashboard"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory string `xml:"DataDirectory"`
	TempDirectory string `xml:"TempDirectory"`
	MaxUploadSize string `xml:"MaxUploadSize"`
}

// AnalysisConfig selects and tunes the chart engine.
type AnalysisConfig struct {
	// Engine is "pipeline" or "notebook".
	Engine string `xml:"Engine"`
	// NotebookPath is resolved against the process working directory.
	NotebookPath   string `xml:"NotebookPath"`
	TimeoutSeconds int    `xml:"TimeoutSeconds"`
	// ChartDiscovery is "source-match" or "output-type".
	ChartDiscovery string `xml:"ChartDiscovery"`
	JupyterCommand string `xml:"JupyterCommand"`
	KernelName     string `xml:"KernelName"`
	LexiconPath    string `xml:"LexiconPath"`
	DuckDBThreads  int    `xml:"DuckDBThreads"`
}

// ProcessingConfig contains session lifecycle settings
type ProcessingConfig struct {
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	KeepAliveMinutes       int  `xml:"KeepAliveMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowSessionDeletion bool   `xml:"AllowSessionDeletion"`
	AllowedFileTypes     string `xml:"AllowedFileTypes"`
}

// DashboardConfig holds the text shown around the dashboard.
type DashboardConfig struct {
	Title string `xml:"Title"`
	// LogoURL is an optional image shown at the top of the sidebar.
	LogoURL     string `xml:"LogoURL"`
	SidebarInfo string `xml:"SidebarInfo"`
	// SidebarTips is markdown.
	SidebarTips string `xml:"SidebarTips"`
	Footer      string `xml:"Footer"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel string `xml:"LogLevel"`
	// LogFormat is "json" or "console".
	LogFormat            string `xml:"LogFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 660,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			TempDirectory: "./data/temp",
			MaxUploadSize: "200M",
		},
		Analysis: AnalysisConfig{
			Engine:         "pipeline",
			NotebookPath:   "YCSA.ipynb",
			TimeoutSeconds: 600,
			ChartDiscovery: "source-match",
			JupyterCommand: "jupyter",
			KernelName:     "python3",
			LexiconPath:    "",
			DuckDBThreads:  2,
		},
		Processing: ProcessingConfig{
			MaxSessions:            50,
			SessionTimeoutMinutes:  30,
			KeepAliveMinutes:       5,
			CleanupIntervalMinutes: 5,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Security: SecurityConfig{
			AllowSessionDeletion: true,
			AllowedFileTypes:     ".csv",
		},
		Dashboard: DashboardConfig{
			Title:       "YouTube Comment Sentiment Analysis",
			SidebarInfo: "Upload a CSV file of YouTube comments and generate sentiment analysis charts.",
			SidebarTips: "✨ **Tips:**\n\n- Upload .csv file\n- Ensure proper columns\n- Charts may take a few minutes",
			Footer:      "©2025 Pratham Pednekar & Shravan Dige | YCSA Dashboard",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "json",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// If file doesn't exist, create default
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Unset elements keep their defaults.
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Comment Sentiment Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if tempDir := os.Getenv("TEMP_DIR"); tempDir != "" {
		c.Storage.TempDirectory = tempDir
	}
	if engine := os.Getenv("ANALYSIS_ENGINE"); engine != "" {
		c.Analysis.Engine = engine
	}
	if nb := os.Getenv("NOTEBOOK_PATH"); nb != "" {
		c.Analysis.NotebookPath = nb
	}
	if secs := os.Getenv("ANALYSIS_TIMEOUT_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			c.Analysis.TimeoutSeconds = s
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file
// location. The notebook path stays relative to the working directory.
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}
	if c.Analysis.LexiconPath != "" && !filepath.IsAbs(c.Analysis.LexiconPath) {
		c.Analysis.LexiconPath = filepath.Join(configDir, c.Analysis.LexiconPath)
	}
}

// Validate checks values that cannot be defaulted.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Analysis.Engine) {
	case "pipeline", "notebook":
	default:
		return fmt.Errorf("invalid Analysis.Engine %q (want pipeline or notebook)", c.Analysis.Engine)
	}
	switch strings.ToLower(c.Analysis.ChartDiscovery) {
	case "", "source-match", "output-type":
	default:
		return fmt.Errorf("invalid Analysis.ChartDiscovery %q", c.Analysis.ChartDiscovery)
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("Analysis.TimeoutSeconds must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid Server.Port %d", c.Server.Port)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// AnalysisTimeout returns the per-run deadline.
func (c *AppConfig) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// SessionMaxAge returns how long idle sessions are kept.
func (c *AppConfig) SessionMaxAge() time.Duration {
	return time.Duration(c.Processing.SessionTimeoutMinutes) * time.Minute
}

// KeepAliveWindow returns how long a touched session is protected.
func (c *AppConfig) KeepAliveWindow() time.Duration {
	return time.Duration(c.Processing.KeepAliveMinutes) * time.Minute
}

// CleanupInterval returns the idle session sweep period.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Processing.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// MaxUploadBytes parses Storage.MaxUploadSize such as "200M".
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	if c.Storage.MaxUploadSize == "" {
		return 0, nil
	}
	n, err := bytes.Parse(c.Storage.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid Storage.MaxUploadSize %q: %w", c.Storage.MaxUploadSize, err)
	}
	return n, nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.TempDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
