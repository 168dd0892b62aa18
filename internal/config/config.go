package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	MediaDir string `toml:"media_dir"`
}

// Backend contains the Clipto REST API settings.
type Backend struct {
	BaseURL         string `toml:"base_url"`
	MetadataGateway string `toml:"metadata_gateway"`
	Token           string `toml:"token"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Upload contains resumable upload transport settings.
type Upload struct {
	ChunkSizeKB   int `toml:"chunk_size_kb"`
	MaxFileSizeKB int `toml:"max_file_size_kb"`
	ChunkAttempts int `toml:"chunk_attempts"`
}

// Poll bounds every remote status loop.
type Poll struct {
	Interval   int `toml:"interval"`
	MaxErrors  int `toml:"max_errors"`
	MaxBackoff int `toml:"max_backoff"`
	Timeout    int `toml:"timeout"`
}

// Wallet contains the signing account and the node that holds it.
type Wallet struct {
	RPCURL    string `toml:"rpc_url"`
	Account   string `toml:"account"`
	Connector string `toml:"connector"`
}

// Chain contains contract addresses and receipt expectations.
type Chain struct {
	ChainID        int64  `toml:"chain_id"`
	ContractV0     string `toml:"contract_v0"`
	ContractV1     string `toml:"contract_v1"`
	DeliveredEvent string `toml:"delivered_event"`
	ReceiptTimeout int    `toml:"receipt_timeout"`
}

// Storage selects the content-addressed storage backend.
type Storage struct {
	Backend    string `toml:"backend"`
	IPFSAPIURL string `toml:"ipfs_api_url"`
	GatewayURL string `toml:"gateway_url"`
	Endpoint   string `toml:"endpoint"`
	Bucket     string `toml:"bucket"`
	AccessKey  string `toml:"access_key"`
	SecretKey  string `toml:"secret_key"`
	UseSSL     bool   `toml:"use_ssl"`
}

// Social contains Lens protocol settings used by share.
type Social struct {
	LensAPIURL string `toml:"lens_api_url"`
	AppID      string `toml:"app_id"`
	SiteURL    string `toml:"site_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	MintReady      bool   `toml:"mint_ready"`
	Delivered      bool   `toml:"delivered"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Clipto.
//
// Configuration sections by subsystem:
//   - Paths: state (queue db, socket, lock, wallet session) and log directories
//   - Backend: Clipto REST API
//   - Upload: chunk size and file size limit for resumable uploads
//   - Poll: interval, error budget, backoff cap and deadline for status loops
//   - Wallet / Chain: signing node, contract addresses, receipt event
//   - Storage: IPFS or MinIO content-addressed storage
//   - Social: Lens API used by share
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Upload        Upload        `toml:"upload"`
	Poll          Poll          `toml:"poll"`
	Wallet        Wallet        `toml:"wallet"`
	Chain         Chain         `toml:"chain"`
	Storage       Storage       `toml:"storage"`
	Social        Social        `toml:"social"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipto/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipto.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.MediaDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the sqlite database holding workflows and jobs.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "clipto.sock")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "clipto.lock")
}

// PIDPath returns the file holding the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "clipto.pid")
}

// WalletSessionPath returns the file persisting the active wallet session.
func (c *Config) WalletSessionPath() string {
	return filepath.Join(c.Paths.StateDir, "wallet_session.json")
}

// PollInterval returns the fixed delay between status queries.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Second
}

// PollMaxBackoff returns the cap applied to backoff after transient errors.
func (c *Config) PollMaxBackoff() time.Duration {
	return time.Duration(c.Poll.MaxBackoff) * time.Second
}

// PollTimeout returns the overall deadline for one status loop.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Poll.Timeout) * time.Second
}

// ReceiptTimeout returns how long to wait for a transaction receipt.
func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.Chain.ReceiptTimeout) * time.Second
}

// BackendTimeout returns the per request timeout for REST calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// ChunkSizeBytes returns the upload chunk size in bytes.
func (c *Config) ChunkSizeBytes() int64 {
	return int64(c.Upload.ChunkSizeKB) * 1024
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Upload.MaxFileSizeKB) * 1024
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
