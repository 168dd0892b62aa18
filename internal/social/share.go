package social

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clipto/internal/backend"
	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/metadata"
	"clipto/internal/poller"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/storage"
)

const (
	// MsgNoProfile is shown when the wallet owns no Lens profile.
	MsgNoProfile = "Please create a Lens profile to share this video."
	// MsgPostUploadFailed is shown when the post metadata could not be stored.
	MsgPostUploadFailed = "Error uploading post to lens"
	// MsgTxFailed is shown when the relayer returned no transaction hash.
	MsgTxFailed = "Error in tx, please open console to screenshot and report error"
)

// Signer signs Lens challenges and typed data with the wallet account.
type Signer interface {
	PersonalSign(ctx context.Context, account, message string) (string, error)
	SignTypedData(ctx context.Context, account string, typedData json.RawMessage) (string, error)
}

// ShareRequest identifies the delivered video to share.
type ShareRequest struct {
	Account  string
	Creator  string
	TokenURI string
}

// ShareResult describes a published Lens post.
type ShareResult struct {
	Profile    Profile
	ContentURI string
	TxHash     string
}

// Sharer publishes delivered videos as Lens posts.
type Sharer struct {
	cfg     *config.Config
	lens    *Client
	backend *backend.Client
	store   storage.Store
	signer  Signer
	poll    poller.Options
	logger  *slog.Logger
	now     func() time.Time
}

// SharerOption customizes a Sharer.
type SharerOption func(*Sharer)

// WithPollOptions overrides how long Share waits for indexing.
func WithPollOptions(opts poller.Options) SharerOption {
	return func(s *Sharer) {
		s.poll = opts
	}
}

// NewSharer wires a Sharer from its dependencies.
func NewSharer(cfg *config.Config, lens *Client, api *backend.Client, store storage.Store, signer Signer, logger *slog.Logger, opts ...SharerOption) *Sharer {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "share")
	s := &Sharer{
		cfg:     cfg,
		lens:    lens,
		backend: api,
		store:   store,
		signer:  signer,
		poll:    poller.FromConfig(cfg, logger),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Share posts the video behind req.TokenURI to the account's Lens profile
// and waits until Lens has indexed the publication.
func (s *Sharer) Share(ctx context.Context, req ShareRequest) (ShareResult, error) {
	account := strings.ToLower(strings.TrimSpace(req.Account))
	if account == "" {
		return ShareResult{}, services.Wrap(services.ErrValidation, "share", "account", "wallet account is required", nil)
	}
	profile, ok, err := s.lens.DefaultProfile(ctx, account)
	if err != nil {
		return ShareResult{}, err
	}
	if !ok {
		return ShareResult{}, services.WithUserMessage(
			services.Wrap(services.ErrValidation, "share", "profile", "no lens profile for "+account, nil),
			MsgNoProfile,
		)
	}
	logger := s.logger.With(logging.String("profile_id", profile.ID), logging.String("handle", profile.Handle))

	raw, err := s.backend.Metadata(ctx, req.TokenURI)
	if err != nil {
		return ShareResult{}, err
	}
	video, err := metadata.ParseNFT(raw)
	if err != nil {
		return ShareResult{}, err
	}
	post := metadata.BuildPost(metadata.PostInput{
		Video:   video,
		Handle:  profile.Handle,
		Creator: req.Creator,
		SiteURL: s.cfg.Social.SiteURL,
		AppID:   s.cfg.Social.AppID,
		Now:     s.now(),
	})
	body, err := post.Encode()
	if err != nil {
		return ShareResult{}, err
	}
	path, err := s.store.Add(ctx, "post.json", body)
	if err == nil && path == "" {
		err = services.Wrap(services.ErrUnexpected, "share", "store post", "storage returned no path", nil)
	}
	if err != nil {
		return ShareResult{}, services.WithUserMessage(err, MsgPostUploadFailed)
	}
	contentURI, err := s.store.URL(ctx, path)
	if err != nil {
		return ShareResult{}, services.WithUserMessage(err, MsgPostUploadFailed)
	}

	sign := func(ctx context.Context, message string) (string, error) {
		return s.signer.PersonalSign(ctx, account, message)
	}
	if err := s.lens.Authenticate(ctx, account, sign); err != nil {
		return ShareResult{}, err
	}
	typed, err := s.lens.CreatePostTypedData(ctx, NewPostRequest(profile.ID, contentURI))
	if err != nil {
		return ShareResult{}, err
	}
	payload, err := typed.SigningPayload()
	if err != nil {
		return ShareResult{}, err
	}
	signature, err := s.signer.SignTypedData(ctx, account, payload)
	if err != nil {
		return ShareResult{}, err
	}
	txHash, err := s.lens.Broadcast(ctx, typed.ID, signature)
	if err == nil && txHash == "" {
		err = services.Wrap(services.ErrProvider, "share", "broadcast", "relayer returned no transaction hash", nil)
	}
	if err != nil {
		return ShareResult{}, services.WithUserMessage(err, MsgTxFailed)
	}
	logger.Info("lens post broadcast",
		logging.String(logging.FieldEventType, "share_broadcast"),
		logging.String("tx_hash", txHash),
		logging.String("content_uri", contentURI),
	)

	if err := s.waitIndexed(ctx, txHash); err != nil {
		return ShareResult{Profile: profile, ContentURI: contentURI, TxHash: txHash}, err
	}
	logger.Info("lens post indexed",
		logging.String(logging.FieldEventType, "share_indexed"),
		logging.String("tx_hash", txHash),
	)
	return ShareResult{Profile: profile, ContentURI: contentURI, TxHash: txHash}, nil
}

func (s *Sharer) waitIndexed(ctx context.Context, txHash string) error {
	query := func(ctx context.Context) (poller.Observation[IndexStatus], error) {
		status, err := s.lens.Indexed(ctx, txHash)
		if err != nil {
			return poller.Observation[IndexStatus]{}, err
		}
		switch {
		case status.Reason != "":
			return poller.Observation[IndexStatus]{Status: queue.JobFailed, Value: status, Detail: status.Reason}, nil
		case status.Indexed:
			return poller.Observation[IndexStatus]{Status: queue.JobSucceeded, Value: status}, nil
		default:
			return poller.Observation[IndexStatus]{Status: queue.JobInProgress, Value: status}, nil
		}
	}
	_, err := poller.New(query, s.poll).Run(ctx)
	if errors.Is(err, poller.ErrJobFailed) {
		return services.Wrap(services.ErrProvider, "share", "index", "lens rejected the publication", err)
	}
	return err
}
