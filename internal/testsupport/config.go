package testsupport

import (
	"path/filepath"
	"testing"

	"clipto/internal/config"
)

// ConfigOption adjusts a test configuration after the defaults are applied.
type ConfigOption func(*config.Config)

// NewConfig returns the default configuration rooted in a fresh temp
// directory, with a wallet account, both contract addresses and one-second
// workflow timings so lanes react quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		StateDir: filepath.Join(root, "state"),
		LogDir:   filepath.Join(root, "logs"),
		MediaDir: filepath.Join(root, "media"),
	}
	cfg.Wallet.Account = "0x1111111111111111111111111111111111111111"
	cfg.Chain.ContractV0 = "0x000000000000000000000000000000000000a000"
	cfg.Chain.ContractV1 = "0x000000000000000000000000000000000000a001"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBackendURL routes every remote collaborator (REST backend, metadata
// gateway, RPC node, IPFS and Lens) to one test server.
func WithBackendURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.BaseURL = url
		cfg.Backend.MetadataGateway = url + "/arweave"
		cfg.Wallet.RPCURL = url + "/rpc"
		cfg.Storage.IPFSAPIURL = url + "/ipfs"
		cfg.Social.LensAPIURL = url + "/lens"
	}
}

// WithChunkSizeKB overrides the upload chunk size.
func WithChunkSizeKB(kb int) ConfigOption {
	return func(cfg *config.Config) { cfg.Upload.ChunkSizeKB = kb }
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
