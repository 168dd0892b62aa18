package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	addressPattern        = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	eventSignaturePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\([a-z0-9,\[\]]*\)$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateWallet(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if err := validateURL("backend.base_url", c.Backend.BaseURL); err != nil {
		return err
	}
	if err := validateURL("backend.metadata_gateway", c.Backend.MetadataGateway); err != nil {
		return err
	}
	if c.Social.LensAPIURL != "" {
		if err := validateURL("social.lens_api_url", c.Social.LensAPIURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateUpload() error {
	if err := ensurePositiveMap(map[string]int{
		"upload.chunk_size_kb":    c.Upload.ChunkSizeKB,
		"upload.max_file_size_kb": c.Upload.MaxFileSizeKB,
		"upload.chunk_attempts":   c.Upload.ChunkAttempts,
	}); err != nil {
		return err
	}
	if c.Upload.ChunkSizeKB > c.Upload.MaxFileSizeKB {
		return errors.New("upload.chunk_size_kb must not exceed upload.max_file_size_kb")
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"backend.request_timeout":        c.Backend.RequestTimeout,
		"poll.interval":                  c.Poll.Interval,
		"poll.max_errors":                c.Poll.MaxErrors,
		"poll.max_backoff":               c.Poll.MaxBackoff,
		"poll.timeout":                   c.Poll.Timeout,
		"chain.receipt_timeout":          c.Chain.ReceiptTimeout,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":   c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":    c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":     c.Workflow.HeartbeatTimeout,
	}); err != nil {
		return err
	}
	if c.Poll.MaxBackoff < c.Poll.Interval {
		return errors.New("poll.max_backoff must be at least poll.interval")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateWallet() error {
	if err := validateURL("wallet.rpc_url", c.Wallet.RPCURL); err != nil {
		return err
	}
	switch c.Wallet.Connector {
	case "metamask", "walletconnect":
	default:
		return fmt.Errorf("wallet.connector: unsupported value %q (want metamask or walletconnect)", c.Wallet.Connector)
	}
	if c.Wallet.Account != "" && !addressPattern.MatchString(c.Wallet.Account) {
		return fmt.Errorf("wallet.account: %q is not a 0x address", c.Wallet.Account)
	}
	for key, value := range map[string]string{
		"chain.contract_v0": c.Chain.ContractV0,
		"chain.contract_v1": c.Chain.ContractV1,
	} {
		if value != "" && !addressPattern.MatchString(value) {
			return fmt.Errorf("%s: %q is not a 0x address", key, value)
		}
	}
	if c.Chain.ChainID <= 0 {
		return errors.New("chain.chain_id must be positive")
	}
	if !eventSignaturePattern.MatchString(c.Chain.DeliveredEvent) {
		return fmt.Errorf("chain.delivered_event: %q is not an event signature like Name(type,...)", c.Chain.DeliveredEvent)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "ipfs":
		return validateURL("storage.ipfs_api_url", c.Storage.IPFSAPIURL)
	case "minio":
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint must be set when storage.backend is minio")
		}
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.bucket must be set when storage.backend is minio")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return errors.New("storage.access_key and storage.secret_key must be set when storage.backend is minio")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want ipfs or minio)", c.Storage.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func validateURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute url", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
