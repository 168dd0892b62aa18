package config

const (
	defaultStateDir                  = "~/.local/share/clipto"
	defaultLogDir                    = "~/.local/share/clipto/logs"
	defaultMediaDir                  = "~/.local/share/clipto/media"
	defaultBackendURL                = "https://api.clipto.io"
	defaultMetadataGateway           = "https://arweave.net"
	defaultBackendRequestTimeout     = 30
	defaultChunkSizeKB               = 5120
	defaultMaxFileSizeKB             = 51200
	defaultChunkAttempts             = 5
	defaultPollInterval              = 5
	defaultPollMaxErrors             = 5
	defaultPollMaxBackoff            = 60
	defaultPollTimeout               = 1800
	defaultRPCURL                    = "http://127.0.0.1:8545"
	defaultConnector                 = "metamask"
	defaultChainID                   = 137
	defaultDeliveredEvent            = "DeliveredRequest(address,uint256,uint256)"
	defaultReceiptTimeout            = 600
	defaultStorageBackend            = "ipfs"
	defaultIPFSAPIURL                = "https://ipfs.infura.io:5001"
	defaultIPFSGatewayURL            = "https://ipfs.infura.io/ipfs"
	defaultMinioBucket               = "clipto"
	defaultLensAPIURL                = "https://api.lens.dev"
	defaultLensAppID                 = "Clipto"
	defaultSiteURL                   = "https://clipto.io"
	defaultNotifyRequestTimeout      = 10
	defaultWorkflowQueuePoll         = 2
	defaultWorkflowErrorRetry        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
		},
		Backend: Backend{
			BaseURL:         defaultBackendURL,
			MetadataGateway: defaultMetadataGateway,
			RequestTimeout:  defaultBackendRequestTimeout,
		},
		Upload: Upload{
			ChunkSizeKB:   defaultChunkSizeKB,
			MaxFileSizeKB: defaultMaxFileSizeKB,
			ChunkAttempts: defaultChunkAttempts,
		},
		Poll: Poll{
			Interval:   defaultPollInterval,
			MaxErrors:  defaultPollMaxErrors,
			MaxBackoff: defaultPollMaxBackoff,
			Timeout:    defaultPollTimeout,
		},
		Wallet: Wallet{
			RPCURL:    defaultRPCURL,
			Connector: defaultConnector,
		},
		Chain: Chain{
			ChainID:        defaultChainID,
			DeliveredEvent: defaultDeliveredEvent,
			ReceiptTimeout: defaultReceiptTimeout,
		},
		Storage: Storage{
			Backend:    defaultStorageBackend,
			IPFSAPIURL: defaultIPFSAPIURL,
			GatewayURL: defaultIPFSGatewayURL,
			Bucket:     defaultMinioBucket,
			UseSSL:     true,
		},
		Social: Social{
			LensAPIURL: defaultLensAPIURL,
			AppID:      defaultLensAppID,
			SiteURL:    defaultSiteURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			MintReady:      true,
			Delivered:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowQueuePoll,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
