package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sift.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Organizer  OrganizerConfig  `toml:"organizer"`
	Models     ModelsConfig     `toml:"models"`
	Classifier ClassifierConfig `toml:"classifier"`
	Backup     BackupConfig     `toml:"backup"`
	Encryption EncryptionConfig `toml:"encryption"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Server     ServerConfig     `toml:"server"`
}

// DatabaseConfig represents configuration for the organizer database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// OrganizerConfig holds the decision and scheduling settings.
type OrganizerConfig struct {
	Thresholds               ThresholdsConfig `toml:"thresholds"`
	MaxFileSizeMB            float64          `toml:"max_file_size_mb"` // 0 disables the limit
	SkipHiddenFiles          bool             `toml:"skip_hidden_files"`
	Fallback                 string           `toml:"fallback"` // "keep" or "review"
	ReviewDir                string           `toml:"review_dir"`
	CreateBackups            bool             `toml:"create_backups"`
	PreserveMetadata         bool             `toml:"preserve_metadata"`
	Workers                  int              `toml:"workers"`
	ClassifierTimeoutSeconds int              `toml:"classifier_timeout_seconds"`
	HistoryRetention         int              `toml:"history_retention"` // 0 keeps everything
	ScanIntervalSeconds      int              `toml:"scan_interval_seconds"`
	DebounceMillis           int              `toml:"debounce_millis"`
	Recursive                bool             `toml:"recursive"`
	ReportDir                string           `toml:"report_dir"`
}

// ThresholdsConfig are minimum confidences in [0, 1] per coarse file type.
type ThresholdsConfig struct {
	Text   float64 `toml:"text"`
	Images float64 `toml:"images"`
	Audio  float64 `toml:"audio"`
	Video  float64 `toml:"video"`
}

// ModelsConfig toggles content extraction per coarse file type.
type ModelsConfig struct {
	Text   bool `toml:"text"`
	Images bool `toml:"images"`
	Audio  bool `toml:"audio"`
	Video  bool `toml:"video"`
}

// ClassifierConfig selects the classifier backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ClassifierConfig struct {
	Type string `toml:"type"` // "llm" or "keyword"

	// LLM-specific fields (only used when Type == "llm")
	BaseURL           string  `toml:"base_url,omitempty"`
	Model             string  `toml:"model,omitempty"`
	APIKeyEnv         string  `toml:"api_key_env,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
	Burst             int     `toml:"burst,omitempty"`
	MaxPromptChars    int     `toml:"max_prompt_chars,omitempty"`
}

// BackupConfig represents configuration for the backup vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BackupConfig struct {
	Type    string `toml:"type"` // "memory", "s3", or "filesystem"
	Encrypt bool   `toml:"encrypt"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyEnv string `toml:"s3_access_key_env,omitempty"`
	S3SecretKeyEnv string `toml:"s3_secret_key_env,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for backup encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// ServerConfig configures the HTTP API of the watch daemon.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// defaultConfig holds every setting that does not depend on a base directory.
func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Type: "sqlite"},
		Organizer: OrganizerConfig{
			Thresholds:               ThresholdsConfig{Text: 0.85, Images: 0.80, Audio: 0.75, Video: 0.70},
			MaxFileSizeMB:            500,
			SkipHiddenFiles:          true,
			Fallback:                 "keep",
			PreserveMetadata:         true,
			Workers:                  4,
			ClassifierTimeoutSeconds: 60,
			HistoryRetention:         1000,
			ScanIntervalSeconds:      300,
			DebounceMillis:           1500,
		},
		Models: ModelsConfig{Text: true, Images: true, Audio: true, Video: true},
		Classifier: ClassifierConfig{
			Type:              "llm",
			BaseURL:           "http://localhost:11434/v1",
			Model:             "llama3.2",
			APIKeyEnv:         "SIFT_LLM_API_KEY",
			RequestsPerSecond: 2,
			Burst:             1,
			MaxPromptChars:    4000,
		},
		Backup: BackupConfig{Type: "filesystem"},
		Server: ServerConfig{Enabled: true, Addr: "127.0.0.1:8765"},
	}
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	cfg := defaultConfig()
	cfg.BaseDir = baseDir
	cfg.LogDir = filepath.Join(baseDir, "log")
	cfg.Database.DataDir = filepath.Join(baseDir, "db")
	cfg.Organizer.ReviewDir = filepath.Join(baseDir, "Review")
	cfg.Organizer.ReportDir = filepath.Join(baseDir, "reports")
	cfg.Backup.FSRoot = filepath.Join(baseDir, "backups")
	cfg.Encryption = EncryptionConfig{
		PublicKeyPath:  filepath.Join(baseDir, "keys", "sift.pub"),
		PrivateKeyPath: filepath.Join(baseDir, "keys", "sift.key"),
	}
	return &cfg
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	o := c.Organizer
	for name, v := range map[string]float64{
		"text": o.Thresholds.Text, "images": o.Thresholds.Images,
		"audio": o.Thresholds.Audio, "video": o.Thresholds.Video,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("organizer.thresholds.%s must be between 0 and 1, got %v", name, v)
		}
	}
	switch o.Fallback {
	case "keep", "":
	case "review":
		if o.ReviewDir == "" {
			return errors.New("organizer.review_dir is required when fallback is \"review\"")
		}
	default:
		return fmt.Errorf("organizer.fallback must be \"keep\" or \"review\", got %q", o.Fallback)
	}
	if o.MaxFileSizeMB < 0 {
		return fmt.Errorf("organizer.max_file_size_mb must not be negative")
	}
	if o.Workers < 0 {
		return fmt.Errorf("organizer.workers must not be negative")
	}
	if o.HistoryRetention < 0 {
		return fmt.Errorf("organizer.history_retention must not be negative")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Settings missing from the
// input keep their defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := defaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
