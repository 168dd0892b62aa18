package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

// IPFS adds files through the HTTP API of an IPFS node or pinning service.
type IPFS struct {
	shell   *shell.Shell
	gateway string
	logger  *slog.Logger
}

// NewIPFS builds an IPFS store from cfg.
func NewIPFS(cfg *config.Config, logger *slog.Logger) *IPFS {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &apiTransport{
			next:   http.DefaultTransport,
			user:   cfg.Storage.AccessKey,
			secret: cfg.Storage.SecretKey,
		},
	}
	return &IPFS{
		shell:   shell.NewShellWithClient(strings.TrimRight(cfg.Storage.IPFSAPIURL, "/"), client),
		gateway: strings.TrimRight(cfg.Storage.GatewayURL, "/"),
		logger:  logging.NewComponentLogger(logger, "storage"),
	}
}

func (s *IPFS) Name() string { return "ipfs" }

// Add uploads body as a single pinned file and returns its CID.
func (s *IPFS) Add(ctx context.Context, name string, body []byte) (string, error) {
	var added struct {
		Hash string `json:"Hash"`
	}
	err := s.shell.Request("add").
		Option("pin", true).
		FileBody(bytes.NewReader(body)).
		Exec(ctx, &added)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var apiErr *shell.Error
		if errors.As(err, &apiErr) {
			return "", services.Wrap(services.ErrUnexpected, "storage", "ipfs add", apiErr.Message, err)
		}
		return "", services.Wrap(services.ErrTransient, "storage", "ipfs add", "", err)
	}
	cid := strings.TrimSpace(added.Hash)
	if cid == "" {
		return "", services.Wrap(services.ErrUnexpected, "storage", "ipfs add", "response carries no hash", nil)
	}
	s.logger.Debug("added content",
		logging.String("name", name),
		logging.String("cid", cid),
		logging.Int("bytes", len(body)),
	)
	return cid, nil
}

// URL returns the gateway URL for a CID.
func (s *IPFS) URL(_ context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "url", "empty content path", nil)
	}
	return s.gateway + "/" + strings.TrimLeft(path, "/"), nil
}

// apiTransport authenticates against hosted IPFS APIs. Gateways in front of
// the API answer 5xx while it is unavailable; those become transport errors
// so callers retry them.
type apiTransport struct {
	next   http.RoundTripper
	user   string
	secret string
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.user != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.user, t.secret)
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		resp.Body.Close()
		return nil, fmt.Errorf("ipfs api answered %s", resp.Status)
	}
	return resp, nil
}
