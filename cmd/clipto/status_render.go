package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipto/internal/queue"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusKinds = map[statusKind]struct {
	label string
	color text.Color
}{
	statusInfo:  {"INFO", text.FgBlue},
	statusOK:    {"OK", text.FgGreen},
	statusWarn:  {"WARN", text.FgYellow},
	statusError: {"ERROR", text.FgRed},
}

func (k statusKind) paint(s string, colorize bool) string {
	if !colorize {
		return s
	}
	return statusKinds[k].color.Sprint(s)
}

// Labels are padded to this width so values line up in a column.
const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// renderStatusLine formats "  Label:   [KIND] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := "[" + statusKinds[kind].label + "]"
	if message != "" {
		badge += " " + message
	}
	return kind.paint(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", badge), colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	return []string{
		statusInfo.paint(heading, colorize),
		statusInfo.paint(strings.Repeat("-", len(heading)), colorize),
	}
}

// shouldColorize enables ANSI color only for terminals.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

var labelCaser = cases.Title(language.English)

// statusLabel renders a stored status such as metadata_ready as
// "Metadata Ready".
func statusLabel(status string) string {
	if status = strings.TrimSpace(status); status == "" {
		return "Unknown"
	}
	return labelCaser.String(strings.ReplaceAll(status, "_", " "))
}

func colorStatus(status string, colorize bool) string {
	kind := statusInfo
	switch queue.Status(status) {
	case queue.StatusDone:
		kind = statusOK
	case queue.StatusFailed:
		kind = statusError
	case queue.StatusMetadataReady:
		kind = statusWarn
	}
	return kind.paint(statusLabel(status), colorize)
}
