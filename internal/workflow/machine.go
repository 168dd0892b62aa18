package workflow

import (
	"fmt"
	"strings"

	"clipto/internal/queue"
	"clipto/internal/services"
)

// StatusIdle is the state of a delivery before its form was submitted. It is
// never persisted.
const StatusIdle queue.Status = "idle"

// Facts is what the guards know about a workflow when a transition is
// attempted.
type Facts struct {
	Title              string
	Description        string
	UploadSucceeded    bool
	TranscodeSucceeded bool
	TokenURI           string
	MintRequested      bool
	TxHash             string
	ReceiptHasEvent    bool
	Indexed            bool
}

// FactsFor derives guard facts from a persisted workflow and its jobs.
// ReceiptHasEvent follows the token id, which is only stored once the
// delivery event was found. Indexed cannot be derived and stays false.
func FactsFor(item *queue.Item, jobs []*queue.Job) Facts {
	facts := Facts{
		Title:           item.Title,
		Description:     item.Description,
		TokenURI:        item.TokenURI,
		MintRequested:   item.MintRequested,
		TxHash:          item.TxHash,
		ReceiptHasEvent: strings.TrimSpace(item.NFTTokenID) != "",
	}
	for _, job := range jobs {
		if job.Status != queue.JobSucceeded {
			continue
		}
		switch job.Kind {
		case queue.JobUpload:
			facts.UploadSucceeded = true
		case queue.JobTranscode:
			facts.TranscodeSucceeded = true
		}
	}
	return facts
}

// GuardError reports a refused transition.
type GuardError struct {
	From   queue.Status
	To     queue.Status
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("transition %s -> %s refused: %s", e.From, e.To, e.Reason)
}

func (e *GuardError) Is(target error) bool {
	return target == services.ErrValidation
}

type guard func(Facts) string

type edge struct {
	from queue.Status
	to   queue.Status
}

// Machine holds the allowed transitions of a delivery and their guards. The
// zero value is not usable; use NewMachine.
type Machine struct {
	edges map[edge]guard
}

// NewMachine returns the delivery state machine:
//
//	idle -> form_entry -> uploading -> uploaded -> transcoding -> metadata_ready
//	     -> minting -> minted -> indexing -> done
//
// with failed reachable from every non-terminal state.
func NewMachine() *Machine {
	m := &Machine{edges: map[edge]guard{
		{StatusIdle, queue.StatusFormEntry}:                  requireForm,
		{queue.StatusFormEntry, queue.StatusUploading}:       requireForm,
		{queue.StatusUploading, queue.StatusUploaded}:        requireUpload,
		{queue.StatusUploaded, queue.StatusTranscoding}:      requireUpload,
		{queue.StatusTranscoding, queue.StatusMetadataReady}: requireMetadata,
		{queue.StatusMetadataReady, queue.StatusMinting}:     requireMintRequest,
		{queue.StatusMinting, queue.StatusMinted}:            requireReceiptEvent,
		{queue.StatusMinted, queue.StatusIndexing}:           requireTx,
		{queue.StatusIndexing, queue.StatusDone}:             requireIndexed,
	}}
	for _, status := range append([]queue.Status{StatusIdle}, queue.AllStatuses()...) {
		if status.IsTerminal() {
			continue
		}
		m.edges[edge{status, queue.StatusFailed}] = nil
	}
	return m
}

// Allowed reports whether from -> to is a known transition, ignoring guards.
func (m *Machine) Allowed(from, to queue.Status) bool {
	_, ok := m.edges[edge{from, to}]
	return ok
}

// Check returns nil when from -> to is allowed and its guard holds.
func (m *Machine) Check(from, to queue.Status, facts Facts) error {
	g, ok := m.edges[edge{from, to}]
	if !ok {
		return &GuardError{From: from, To: to, Reason: "no such transition"}
	}
	if g == nil {
		return nil
	}
	if reason := g(facts); reason != "" {
		return &GuardError{From: from, To: to, Reason: reason}
	}
	return nil
}

// MintEnabled reports whether the creator may confirm the mint: the
// workflow waits in metadata_ready with a token URI and no earlier request.
func (m *Machine) MintEnabled(status queue.Status, facts Facts) bool {
	return status == queue.StatusMetadataReady &&
		!facts.MintRequested &&
		strings.TrimSpace(facts.TokenURI) != ""
}

func requireForm(f Facts) string {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Description) == "" {
		return "title and description are required"
	}
	return ""
}

func requireUpload(f Facts) string {
	if !f.UploadSucceeded {
		return "upload has not succeeded"
	}
	return ""
}

func requireMetadata(f Facts) string {
	if !f.TranscodeSucceeded {
		return "transcode has not succeeded"
	}
	if strings.TrimSpace(f.TokenURI) == "" {
		return "token uri is empty"
	}
	return ""
}

func requireMintRequest(f Facts) string {
	if strings.TrimSpace(f.TokenURI) == "" {
		return "token uri is empty"
	}
	if !f.MintRequested {
		return "mint was not requested"
	}
	return ""
}

func requireReceiptEvent(f Facts) string {
	if !f.ReceiptHasEvent {
		return "receipt is missing the delivery event"
	}
	return ""
}

func requireTx(f Facts) string {
	if strings.TrimSpace(f.TxHash) == "" {
		return "transaction hash is empty"
	}
	return ""
}

func requireIndexed(f Facts) string {
	if !f.Indexed {
		return "delivery was not indexed"
	}
	return ""
}
