package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipto/internal/chain"
	"clipto/internal/config"
)

const checkTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHTTP reports whether baseURL answers at all. Any response below 500
// counts as reachable since GraphQL and REST roots often reject a bare GET.
func CheckHTTP(ctx context.Context, name, baseURL string) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Optional: true, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("bad url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: checkTimeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckRPC asks the RPC node for its chain id and compares it with the
// configured chain.
func CheckRPC(ctx context.Context, cfg *config.Config) Result {
	const name = "RPC node"
	if cfg == nil || strings.TrimSpace(cfg.Wallet.RPCURL) == "" {
		return Result{Name: name, Detail: "wallet.rpc_url not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	id, err := chain.New(cfg).ChainID(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	if cfg.Chain.ChainID > 0 && id != cfg.Chain.ChainID {
		return Result{Name: name, Detail: fmt.Sprintf("connected to chain %d, want %d", id, cfg.Chain.ChainID)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("chain %d", id)}
}
