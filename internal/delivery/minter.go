package delivery

import (
	"context"
	"strings"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/logging"
	"clipto/internal/metadata"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/stage"
	"clipto/internal/workflow"
)

const (
	// MintFailedMessage is shown for every mint failure.
	MintFailedMessage = "Failed to mint NFT!"
	// RequestMissingMessage is shown when the booking request is gone.
	RequestMissingMessage = "Request not found. Try reloading the page..."
	// MintedMessage is the progress text once the delivery event was seen.
	MintedMessage = "Successfully completed order! Order status will be reflected shortly."
)

// Minter submits the delivery transaction and moves the workflow from Minting
// to Minted once the receipt carries the delivery event.
type Minter struct {
	base
}

// NewMinter returns the mint stage handler.
func NewMinter(deps Deps) *Minter {
	return &Minter{base: newBase(deps, "minter")}
}

// Prepare refuses to mint without an explicit request and a token URI.
func (m *Minter) Prepare(ctx context.Context, item *queue.Item) error {
	if !item.MintRequested {
		return services.Wrap(services.ErrValidation, "minting", "prepare", "mint was not requested", nil)
	}
	if strings.TrimSpace(item.TokenURI) == "" {
		return services.Wrap(services.ErrValidation, "minting", "prepare", "token uri is empty", nil)
	}
	item.InitProgress("Minting", "Minting NFT...")
	return nil
}

// Execute sends deliverRequest and waits for its receipt. The transaction is
// never resubmitted by this stage.
func (m *Minter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, m.logger)

	req, err := m.deps.Backend.Request(ctx, item.RequestID, item.Creator, item.Version)
	if err != nil {
		if backend.IsNotFound(err) {
			return services.WithUserMessage(
				services.Wrap(services.ErrValidation, "minting", "lookup request", "request "+item.RequestID+" not found", err),
				RequestMissingMessage)
		}
		return services.WithUserMessage(err, MintFailedMessage)
	}
	version, err := stage.ContractVersion(item.RequestID)
	if err != nil {
		return services.WithUserMessage(err, MintFailedMessage)
	}
	contract := m.deps.Config.Chain.ContractV1
	if version == 0 {
		contract = m.deps.Config.Chain.ContractV0
	}
	account, err := m.deps.Signer.Account()
	if err != nil {
		return services.WithUserMessage(err, MintFailedMessage)
	}

	hash, err := m.deps.Chain.Transact(ctx, account, contract, chain.MethodDeliverRequest, req.RequestID, metadata.TokenURI(item.TokenURI))
	if err != nil {
		return services.WithUserMessage(err, MintFailedMessage)
	}
	item.TxHash = hash
	if err := m.deps.Store.Update(ctx, item); err != nil {
		return services.Wrap(services.ErrUnexpected, "minting", "persist", "could not store transaction hash", err)
	}
	job, err := m.deps.Store.CreateJob(ctx, item.ID, queue.JobTransaction, hash)
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "minting", "record job", "could not record transaction job", err)
	}
	logger.Info("delivery transaction sent",
		logging.String(logging.FieldEventType, "mint_submitted"),
		logging.String(logging.FieldJobID, hash),
		logging.String("contract", contract),
	)

	obs, err := trackJob(ctx, &m.base, job, m.deps.Chain.ReceiptTracker(hash, m.deps.ReceiptPoll)).Run(ctx)
	if err != nil {
		return services.WithUserMessage(pollFailure("minting", "receipt", "transaction did not succeed", err), MintFailedMessage)
	}
	event, ok := obs.Value.FindEvent(contract, m.deps.Config.Chain.DeliveredEvent)
	if !ok {
		return services.WithUserMessage(
			services.Wrap(services.ErrReceiptEventMissing, "minting", "receipt", "receipt of "+hash+" has no delivery event", nil),
			MintFailedMessage)
	}
	tokenID, err := chain.LastValue(event)
	if err != nil {
		return services.WithUserMessage(
			services.Wrap(services.ErrReceiptEventMissing, "minting", "receipt", "delivery event carries no token id", err),
			MintFailedMessage)
	}
	item.NFTTokenID = tokenID.String()

	tokenField := "nftTokenId"
	if version == 0 {
		tokenField = "tokenId"
	}
	logger.Info("delivery event found",
		logging.String(logging.FieldEventType, "mint_confirmed"),
		logging.String(tokenField, item.NFTTokenID),
	)

	jobs, err := m.deps.Store.JobsForWorkflow(ctx, item.ID)
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "minting", "load jobs", "could not load jobs", err)
	}
	if err := m.machine.Check(queue.StatusMinting, queue.StatusMinted, workflow.FactsFor(item, jobs)); err != nil {
		return err
	}
	item.SetProgressComplete("Minted", MintedMessage)
	return nil
}

// HealthCheck reports whether the chain client and contracts are wired.
func (m *Minter) HealthCheck(context.Context) stage.Health {
	switch {
	case m.deps.Chain == nil:
		return stage.Unhealthy("minter", "chain client not configured")
	case m.deps.Config == nil || m.deps.Config.Chain.ContractV1 == "":
		return stage.Unhealthy("minter", "delivery contract not configured")
	default:
		return stage.Healthy("minter")
	}
}
