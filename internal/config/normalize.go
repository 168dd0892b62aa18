package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeWallet()
	c.normalizeStorage()
	c.normalizeSocial()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if c.Backend.Token == "" {
		if value, ok := os.LookupEnv("CLIPTO_BACKEND_TOKEN"); ok {
			c.Backend.Token = strings.TrimSpace(value)
		}
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	c.Backend.MetadataGateway = strings.TrimRight(strings.TrimSpace(c.Backend.MetadataGateway), "/")
	if c.Backend.MetadataGateway == "" {
		c.Backend.MetadataGateway = defaultMetadataGateway
	}
}

func (c *Config) normalizeWallet() {
	c.Wallet.RPCURL = strings.TrimSpace(c.Wallet.RPCURL)
	if c.Wallet.RPCURL == "" {
		c.Wallet.RPCURL = defaultRPCURL
	}
	if c.Wallet.Account == "" {
		if value, ok := os.LookupEnv("CLIPTO_WALLET_ACCOUNT"); ok {
			c.Wallet.Account = value
		}
	}
	c.Wallet.Account = strings.ToLower(strings.TrimSpace(c.Wallet.Account))
	c.Wallet.Connector = strings.ToLower(strings.TrimSpace(c.Wallet.Connector))
	if c.Wallet.Connector == "" {
		c.Wallet.Connector = defaultConnector
	}
	c.Chain.ContractV0 = strings.ToLower(strings.TrimSpace(c.Chain.ContractV0))
	c.Chain.ContractV1 = strings.ToLower(strings.TrimSpace(c.Chain.ContractV1))
	c.Chain.DeliveredEvent = strings.TrimSpace(c.Chain.DeliveredEvent)
	if c.Chain.DeliveredEvent == "" {
		c.Chain.DeliveredEvent = defaultDeliveredEvent
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.IPFSAPIURL = strings.TrimRight(strings.TrimSpace(c.Storage.IPFSAPIURL), "/")
	c.Storage.GatewayURL = strings.TrimRight(strings.TrimSpace(c.Storage.GatewayURL), "/")
	if c.Storage.GatewayURL == "" {
		c.Storage.GatewayURL = defaultIPFSGatewayURL
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("CLIPTO_STORAGE_SECRET_KEY"); ok {
			c.Storage.SecretKey = value
		}
	}
}

func (c *Config) normalizeSocial() {
	c.Social.LensAPIURL = strings.TrimRight(strings.TrimSpace(c.Social.LensAPIURL), "/")
	c.Social.SiteURL = strings.TrimRight(strings.TrimSpace(c.Social.SiteURL), "/")
	if strings.TrimSpace(c.Social.AppID) == "" {
		c.Social.AppID = defaultLensAppID
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPTO_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
