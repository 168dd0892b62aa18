package profile

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/poller"
	"clipto/internal/services"
)

const (
	// OnboardMessage is signed when a creator registers.
	OnboardMessage = "I am onboarding to Clipto"
	// UpdateMessage is signed when a creator edits their profile.
	UpdateMessage = "I am updating my profile in Clipto"
)

// Signer produces personal_sign signatures for the connected account.
type Signer interface {
	Sign(ctx context.Context, message string) (account, signature string, err error)
}

// Transactor submits contract calls and waits for them to be mined.
type Transactor interface {
	Transact(ctx context.Context, account, contract, method string, args ...any) (string, error)
	WaitForReceipt(ctx context.Context, hash string, opts poller.Options) (*chain.Receipt, error)
}

// Service creates, updates and looks up creator profiles.
type Service struct {
	cfg    *config.Config
	api    *backend.Client
	chain  Transactor
	signer Signer
	poll   poller.Options
	logger *slog.Logger
}

// NewService wires a profile service.
func NewService(cfg *config.Config, api *backend.Client, tx Transactor, signer Signer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "profile")
	return &Service{cfg: cfg, api: api, chain: tx, signer: signer, poll: poller.ForReceipts(cfg, logger), logger: logger}
}

// SetPollOptions overrides how receipts are awaited.
func (s *Service) SetPollOptions(opts poller.Options) {
	s.poll = opts
}

// Lookup returns the profile for address. A missing profile is not an error.
func (s *Service) Lookup(ctx context.Context, address string) (backend.User, bool, error) {
	user, err := s.api.User(ctx, address)
	if backend.IsNotFound(err) {
		return backend.User{}, false, nil
	}
	if err != nil {
		return backend.User{}, false, err
	}
	return user, true, nil
}

// Create registers the creator on chain and then stores the signed profile.
func (s *Service) Create(ctx context.Context, form Form) (backend.User, error) {
	if err := Validate(form, true); err != nil {
		return backend.User{}, err
	}
	user := toUser(form)
	logger := s.logger.With(logging.String("address", user.Address))

	hash, err := s.chain.Transact(ctx, user.Address, s.cfg.Chain.ContractV1, chain.MethodRegisterCreator, user.UserName)
	if err != nil {
		return backend.User{}, services.Wrap(services.ErrProvider, "profile", "register creator", "", err)
	}
	logger.Info("creator registration submitted",
		logging.String(logging.FieldEventType, "creator_register_submitted"),
		logging.String("tx_hash", hash),
	)
	if _, err := s.chain.WaitForReceipt(ctx, hash, s.poll); err != nil {
		return backend.User{}, services.Wrap(services.ErrProvider, "profile", "register creator", "registration was not confirmed", err)
	}

	signed, err := s.sign(ctx, user, OnboardMessage)
	if err != nil {
		return backend.User{}, err
	}
	if err := s.api.CreateUser(ctx, signed); err != nil {
		return backend.User{}, err
	}
	logger.Info("creator profile created", logging.String(logging.FieldEventType, "creator_profile_created"))
	return user, nil
}

// Update stores an edited profile without touching the chain.
func (s *Service) Update(ctx context.Context, form Form) (backend.User, error) {
	if err := Validate(form, false); err != nil {
		return backend.User{}, err
	}
	user := toUser(form)
	signed, err := s.sign(ctx, user, UpdateMessage)
	if err != nil {
		return backend.User{}, err
	}
	if err := s.api.UpdateUser(ctx, signed); err != nil {
		return backend.User{}, err
	}
	s.logger.Info("creator profile updated",
		logging.String(logging.FieldEventType, "creator_profile_updated"),
		logging.String("address", user.Address),
	)
	return user, nil
}

// FormFromUser fills a form with a stored profile so it can be edited.
func FormFromUser(user backend.User) Form {
	form := Form{
		Address:        user.Address,
		UserName:       user.UserName,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		TweetURL:       user.TweetURL,
	}
	if user.DeliveryTime > 0 {
		form.DeliveryTime = strconv.Itoa(user.DeliveryTime)
	}
	if user.Price > 0 {
		form.Price = strconv.FormatFloat(user.Price, 'f', -1, 64)
	}
	copy(form.Demos[:], user.Demos)
	return form
}

func (s *Service) sign(ctx context.Context, user backend.User, message string) (backend.SignedUser, error) {
	account, signature, err := s.signer.Sign(ctx, message)
	if err != nil {
		return backend.SignedUser{}, err
	}
	if !strings.EqualFold(account, user.Address) {
		return backend.SignedUser{}, services.Wrap(services.ErrValidation, "profile", "sign",
			"connected account "+account+" does not match "+user.Address, nil)
	}
	return backend.SignedUser{User: user, Message: message, Signed: signature}, nil
}

func toUser(form Form) backend.User {
	days, _ := strconv.Atoi(form.DeliveryTime)
	price, _ := parseNumber(form.Price)
	return backend.User{
		Address:        strings.ToLower(form.Address),
		UserName:       form.UserName,
		Bio:            form.Bio,
		ProfilePicture: form.ProfilePicture,
		DeliveryTime:   days,
		Price:          price,
		TweetURL:       form.TweetURL,
		Demos:          form.demoLinks(),
	}
}
