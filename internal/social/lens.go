package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	graphql "github.com/hasura/go-graphql-client"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

const (
	profilesQuery = `query Profiles($request: ProfileQueryRequest!) {
  profiles(request: $request) { items { id handle } }
}`
	challengeQuery = `query Challenge($request: ChallengeRequest!) {
  challenge(request: $request) { text }
}`
	authenticateMutation = `mutation Authenticate($request: SignedAuthChallenge!) {
  authenticate(request: $request) { accessToken refreshToken }
}`
	createPostTypedDataMutation = `mutation CreatePostTypedData($request: CreatePublicPostRequest!) {
  createPostTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types { PostWithSig { name type } }
      domain { name chainId version verifyingContract }
      value { nonce deadline profileId contentURI collectModule collectModuleInitData referenceModule referenceModuleInitData }
    }
  }
}`
	broadcastMutation = `mutation Broadcast($request: BroadcastRequest!) {
  broadcast(request: $request) {
    __typename
    ... on RelayerResult { txHash txId }
    ... on RelayError { reason }
  }
}`
	indexedQuery = `query HasTxHashBeenIndexed($request: HasTxHashBeenIndexedRequest!) {
  hasTxHashBeenIndexed(request: $request) {
    __typename
    ... on TransactionIndexedResult { indexed txReceipt { transactionHash status } }
    ... on TransactionError { reason }
  }
}`
)

// Profile is a Lens profile owned by the creator.
type Profile struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// PostRequest is the public post request sent to Lens.
type PostRequest struct {
	ProfileID       string          `json:"profileId"`
	ContentURI      string          `json:"contentURI"`
	CollectModule   json.RawMessage `json:"collectModule"`
	ReferenceModule json.RawMessage `json:"referenceModule"`
}

// NewPostRequest returns a post request with a free collect module and no
// follower-only restriction.
func NewPostRequest(profileID, contentURI string) PostRequest {
	return PostRequest{
		ProfileID:       profileID,
		ContentURI:      contentURI,
		CollectModule:   json.RawMessage(`{"freeCollectModule":{"followerOnly":false}}`),
		ReferenceModule: json.RawMessage(`{"followerOnlyReferenceModule":false}`),
	}
}

// TypedData is the EIP-712 payload Lens asks the wallet to sign.
type TypedData struct {
	ID        string          `json:"id"`
	ExpiresAt string          `json:"expiresAt"`
	TypedData typedDataFields `json:"typedData"`
}

type typedDataFields struct {
	Types  map[string]json.RawMessage `json:"types"`
	Domain json.RawMessage            `json:"domain"`
	Value  json.RawMessage            `json:"value"`
}

// SigningPayload renders the typed data in eth_signTypedData_v4 form.
func (t TypedData) SigningPayload() (json.RawMessage, error) {
	types := make(map[string]json.RawMessage, len(t.TypedData.Types)+1)
	for name, fields := range t.TypedData.Types {
		if name == "__typename" {
			continue
		}
		types[name] = fields
	}
	types["EIP712Domain"] = json.RawMessage(`[{"name":"name","type":"string"},{"name":"version","type":"string"},{"name":"chainId","type":"uint256"},{"name":"verifyingContract","type":"address"}]`)
	payload, err := json.Marshal(map[string]any{
		"types":       types,
		"domain":      t.TypedData.Domain,
		"primaryType": "PostWithSig",
		"message":     t.TypedData.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("encode typed data: %w", err)
	}
	return payload, nil
}

// IndexStatus is the indexing state of a Lens transaction.
type IndexStatus struct {
	Indexed bool
	Reason  string
}

// Client is a Lens GraphQL client.
type Client struct {
	gql    *graphql.Client
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
}

// NewClient builds a Lens client for cfg.Social.LensAPIURL.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{logger: logging.NewComponentLogger(logger, "lens")}
	endpoint := strings.TrimRight(cfg.Social.LensAPIURL, "/")
	c.gql = graphql.NewClient(endpoint, &http.Client{Timeout: 30 * time.Second}).
		WithRequestModifier(c.authorize)
	return c
}

func (c *Client) authorize(req *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" {
		req.Header.Set("x-access-token", "Bearer "+c.accessToken)
	}
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	data, err := c.gql.ExecRaw(ctx, query, variables)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify(err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrUnexpected, "share", "lens", "decode data", err)
	}
	return nil
}

// classify treats transport failures as transient and answers from the API
// as unexpected.
func classify(err error) error {
	var gqlErrs graphql.Errors
	if !errors.As(err, &gqlErrs) {
		return services.Wrap(services.ErrTransient, "share", "lens", "request failed", err)
	}
	kind := services.ErrUnexpected
	messages := make([]string, 0, len(gqlErrs))
	for _, e := range gqlErrs {
		if code, _ := e.Extensions["code"].(string); code == graphql.ErrRequestError {
			kind = services.ErrTransient
		}
		messages = append(messages, e.Message)
	}
	return services.Wrap(kind, "share", "lens", strings.Join(messages, "; "), err)
}

// DefaultProfile returns the first profile owned by address.
func (c *Client) DefaultProfile(ctx context.Context, address string) (Profile, bool, error) {
	var data struct {
		Profiles struct {
			Items []Profile `json:"items"`
		} `json:"profiles"`
	}
	vars := map[string]any{"request": map[string]any{"ownedBy": []string{address}, "limit": 1}}
	if err := c.do(ctx, profilesQuery, vars, &data); err != nil {
		return Profile{}, false, err
	}
	if len(data.Profiles.Items) == 0 {
		return Profile{}, false, nil
	}
	return data.Profiles.Items[0], true, nil
}

// Authenticate signs the Lens login challenge and keeps the access token.
func (c *Client) Authenticate(ctx context.Context, address string, sign func(ctx context.Context, message string) (string, error)) error {
	var challenge struct {
		Challenge struct {
			Text string `json:"text"`
		} `json:"challenge"`
	}
	if err := c.do(ctx, challengeQuery, map[string]any{"request": map[string]any{"address": address}}, &challenge); err != nil {
		return err
	}
	signature, err := sign(ctx, challenge.Challenge.Text)
	if err != nil {
		return err
	}
	var auth struct {
		Authenticate struct {
			AccessToken string `json:"accessToken"`
		} `json:"authenticate"`
	}
	vars := map[string]any{"request": map[string]any{"address": address, "signature": signature}}
	if err := c.do(ctx, authenticateMutation, vars, &auth); err != nil {
		return err
	}
	if auth.Authenticate.AccessToken == "" {
		return services.Wrap(services.ErrUnexpected, "share", "lens authenticate", "no access token returned", nil)
	}
	c.mu.Lock()
	c.accessToken = auth.Authenticate.AccessToken
	c.mu.Unlock()
	return nil
}

// CreatePostTypedData asks Lens for the typed data of a post.
func (c *Client) CreatePostTypedData(ctx context.Context, request PostRequest) (TypedData, error) {
	var data struct {
		CreatePostTypedData TypedData `json:"createPostTypedData"`
	}
	if err := c.do(ctx, createPostTypedDataMutation, map[string]any{"request": request}, &data); err != nil {
		return TypedData{}, err
	}
	if data.CreatePostTypedData.ID == "" {
		return TypedData{}, services.Wrap(services.ErrUnexpected, "share", "lens typed data", "missing typed data id", nil)
	}
	return data.CreatePostTypedData, nil
}

// Broadcast relays a signed post and returns its transaction hash.
func (c *Client) Broadcast(ctx context.Context, typedDataID, signature string) (string, error) {
	var data struct {
		Broadcast struct {
			Typename string `json:"__typename"`
			TxHash   string `json:"txHash"`
			Reason   string `json:"reason"`
		} `json:"broadcast"`
	}
	vars := map[string]any{"request": map[string]any{"id": typedDataID, "signature": signature}}
	if err := c.do(ctx, broadcastMutation, vars, &data); err != nil {
		return "", err
	}
	if data.Broadcast.Reason != "" {
		return "", services.Wrap(services.ErrProvider, "share", "lens broadcast", data.Broadcast.Reason, nil)
	}
	return data.Broadcast.TxHash, nil
}

// Indexed reports whether Lens has indexed txHash.
func (c *Client) Indexed(ctx context.Context, txHash string) (IndexStatus, error) {
	var data struct {
		Result struct {
			Typename string `json:"__typename"`
			Indexed  bool   `json:"indexed"`
			Reason   string `json:"reason"`
		} `json:"hasTxHashBeenIndexed"`
	}
	if err := c.do(ctx, indexedQuery, map[string]any{"request": map[string]any{"txHash": txHash}}, &data); err != nil {
		return IndexStatus{}, err
	}
	return IndexStatus{Indexed: data.Result.Indexed, Reason: data.Result.Reason}, nil
}
