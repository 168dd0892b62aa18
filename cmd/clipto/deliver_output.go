package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clipto/internal/ipc"
	"clipto/internal/nft"
	"clipto/internal/notifications"
	"clipto/internal/queue"
)

func renderDeliveryTable(deliveries []ipc.Delivery, colorize bool) string {
	rows := make([][]string, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			d.RequestID,
			d.Title,
			colorStatus(d.Status, colorize),
			formatProgress(d),
			formatAge(d.UpdatedAt),
		})
	}
	return renderTable([]column{
		{header: "ID", rightAlign: true},
		{header: "Request"},
		{header: "Title", maxWidth: 32},
		{header: "Status"},
		{header: "Progress", maxWidth: 40},
		{header: "Updated", rightAlign: true},
	}, rows)
}

func renderDeliveryDetail(out io.Writer, d *ipc.Delivery, colorize bool) {
	for _, line := range renderSectionHeader(fmt.Sprintf("Delivery #%d", d.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
	}
	field("Status", colorStatus(d.Status, colorize))
	field("Request", d.RequestID)
	field("Creator", d.Creator)
	field("Title", d.Title)
	field("Description", d.Description)
	field("File", d.SourcePath)
	field("Progress", formatProgress(*d))
	field("Upload", d.UploadUUID)
	field("Token URI", d.TokenURI)
	field("Mint", mintLine(d))
	field("Transaction", d.TxHash)
	field("Token ID", d.NFTTokenID)
	field("Lens post", d.ShareTxHash)
	if d.Status == string(queue.StatusFailed) {
		field("Failed at", statusLabel(d.FailedStatus))
		field("Error", strings.TrimSpace(d.ErrorKind+": "+d.ErrorMessage))
	}
	field("Created", d.CreatedAt.Local().Format(time.DateTime))
	field("Updated", d.UpdatedAt.Local().Format(time.DateTime))

	if len(d.Jobs) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(d.Jobs))
	for _, job := range d.Jobs {
		rows = append(rows, []string{job.Kind, job.RemoteID, statusLabel(job.Status), job.Detail, formatAge(job.UpdatedAt)})
	}
	fmt.Fprint(out, renderTable([]column{
		{header: "Job"},
		{header: "Remote ID", maxWidth: 40},
		{header: "Status"},
		{header: "Detail", maxWidth: 40},
		{header: "Updated", rightAlign: true},
	}, rows))
}

func mintLine(d *ipc.Delivery) string {
	switch {
	case d.MintEnabled:
		return fmt.Sprintf("Ready; run `clipto deliver mint %d`", d.ID)
	case d.MintRequested && d.TxHash == "":
		return "Confirmed, waiting for the wallet"
	case d.MintRequested:
		return "Submitted"
	default:
		return ""
	}
}

func formatProgress(d ipc.Delivery) string {
	if d.Status == string(queue.StatusFailed) {
		return d.ErrorMessage
	}
	if d.ProgressMessage == "" && d.ProgressPercent == 0 {
		return ""
	}
	if d.ProgressPercent <= 0 {
		return d.ProgressMessage
	}
	return fmt.Sprintf("%3.0f%% %s", d.ProgressPercent, d.ProgressMessage)
}

func renderEventLine(record notifications.Record, colorize bool) string {
	var b strings.Builder
	b.WriteString(record.Time.Local().Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(colorStatus(record.Status, colorize))
	if record.Percent > 0 {
		fmt.Fprintf(&b, " %3.0f%%", record.Percent)
	}
	if record.Message != "" {
		b.WriteString(" ")
		b.WriteString(record.Message)
	}
	return b.String()
}

func formatAge(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	age := time.Since(ts)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func renderNFTDetails(out io.Writer, details *nft.Details, lookupErr string, colorize bool) {
	if details == nil && lookupErr == "" {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("NFT", colorize) {
		fmt.Fprintln(out, line)
	}
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
	}
	if details == nil {
		field("Unavailable", lookupErr)
		return
	}
	field("Contract", details.TokenAddress)
	field("Token ID", details.TokenID)
	field("Token URI", details.TokenURI)
	if details.Metadata != nil {
		field("Name", details.Metadata.Name)
		field("Video", details.Metadata.AnimationURL)
	}
	field("Metadata", details.MetadataError)
	field("Owner", details.Owner)
	if details.HistoryError != "" {
		field("History", "unavailable: "+details.HistoryError)
		return
	}
	if len(details.History) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(details.History))
	for _, transfer := range details.History {
		event := "Transfer"
		if transfer.Minted() {
			event = "Mint"
		}
		rows = append(rows, []string{event, transfer.From, transfer.To, strconv.FormatUint(transfer.BlockNumber, 10), transfer.TxHash})
	}
	fmt.Fprint(out, renderTable([]column{
		{header: "Event"},
		{header: "From", maxWidth: 42},
		{header: "To", maxWidth: 42},
		{header: "Block", rightAlign: true},
		{header: "Transaction", maxWidth: 66},
	}, rows))
}
