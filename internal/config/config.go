package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for visitnotes. One file serves
// both the server (`visitnotes serve`) and the CLI client.
type Config struct {
	DeviceID      string              `toml:"device_id"`
	BaseDir       string              `toml:"base_dir"`
	LogDir        string              `toml:"log_dir"`
	Server        ServerConfig        `toml:"server"`
	Client        ClientConfig        `toml:"client"`
	Database      DatabaseConfig      `toml:"database"`
	Local         LocalStoreConfig    `toml:"local"`
	Vault         VaultConfig         `toml:"vault"`
	Encryption    EncryptionConfig    `toml:"encryption"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Summarizer    SummarizerConfig    `toml:"summarizer"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	SessionTTLHours int    `toml:"session_ttl_hours"` // defaults to 7 days when zero
	SecureCookies   bool   `toml:"secure_cookies"`
}

// ClientConfig holds settings the CLI uses to reach the server.
type ClientConfig struct {
	ServerURL      string `toml:"server_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // defaults to 30 when zero
}

// DatabaseConfig represents configuration for the server database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// LocalStoreConfig represents configuration for the client's on-device store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type LocalStoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// VaultConfig represents configuration for the audio vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "s3" or "minio"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // optional, for S3-compatible services

	// Optional static credentials read from these environment variables.
	// The default AWS credential chain is used when unset.
	S3AccessKeyEnv string `toml:"s3_access_key_env,omitempty"`
	S3SecretKeyEnv string `toml:"s3_secret_key_env,omitempty"`

	// MinIO-specific fields (only used when Type == "minio")
	MinioEndpoint     string `toml:"minio_endpoint,omitempty"`
	MinioBucket       string `toml:"minio_bucket,omitempty"`
	MinioPrefix       string `toml:"minio_prefix,omitempty"`
	MinioAccessKeyEnv string `toml:"minio_access_key_env,omitempty"`
	MinioSecretKeyEnv string `toml:"minio_secret_key_env,omitempty"`
	MinioUseSSL       bool   `toml:"minio_use_ssl,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt stored audio.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "plain"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// TranscriptionConfig configures the speech-to-text backend.
type TranscriptionConfig struct {
	Type      string `toml:"type"` // "whisper" or "fake"
	BaseURL   string `toml:"base_url,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"` // name of the env var holding the key
}

// SummarizerConfig configures the language model used to summarize transcripts.
type SummarizerConfig struct {
	Type      string `toml:"type"` // "anthropic" or "fake"
	Model     string `toml:"model,omitempty"`
	MaxTokens int64  `toml:"max_tokens,omitempty"`
	BaseURL   string `toml:"base_url,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Server: ServerConfig{
			Addr:            ":3000",
			SessionTTLHours: 24 * 7,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:3000",
			TimeoutSeconds: 30,
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Local:    LocalStoreConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "local")},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "audio",
			FSVaultRoot: filepath.Join(baseDir, "audio"),
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "visitnotes.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "visitnotes.key"),
		},
		Transcription: TranscriptionConfig{
			Type:      "whisper",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "whisper-1",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Summarizer: SummarizerConfig{
			Type:      "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
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

// ReadFromFile reads a Config from the specified file path.
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
