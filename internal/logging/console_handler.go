package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// Fields beyond this many are summarised on INFO and above.
const consoleFieldLimit = 8

// consoleHandler renders records for humans: a header line naming the
// component and delivery, then one indented line per remaining field.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
}

type field struct {
	key   string
	value slog.Value
}

// header holds the attributes lifted out of the field list into the first line.
type header struct {
	component string
	itemID    string
	stage     string
	lane      string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	for _, a := range attrs {
		next.preset = appendField(next.preset, h.groups, a)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) derive() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		out:       h.out,
		level:     h.level,
		preset:    append([]field(nil), h.preset...),
		groups:    append([]string(nil), h.groups...),
		addSource: h.addSource,
	}
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := append([]field(nil), h.preset...)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.groups, a)
		return true
	})
	hdr, rest := splitHeader(lastWins(fields))

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(when.Local().Format(consoleTimeLayout))
	b.WriteString(" " + levelName(record.Level))
	if hdr.component != "" {
		b.WriteString(" [" + hdr.component + "]")
	}
	if subject := hdr.subject(); subject != "" {
		b.WriteString(" " + subject)
	}
	b.WriteString(" - " + msg)
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')

	shown := rest
	if record.Level >= slog.LevelInfo && len(shown) > consoleFieldLimit {
		shown = shown[:consoleFieldLimit]
	}
	for _, f := range shown {
		b.WriteString("    - " + f.key + ": " + renderValue(f.value, true) + "\n")
	}
	switch hidden := len(rest) - len(shown); {
	case hidden == 1:
		b.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		b.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func splitHeader(fields []field) (header, []field) {
	var hdr header
	rest := fields[:0:0]
	for _, f := range fields {
		var slot *string
		switch f.key {
		case FieldComponent:
			slot = &hdr.component
		case FieldItemID:
			slot = &hdr.itemID
		case FieldStage:
			slot = &hdr.stage
		case FieldLane:
			slot = &hdr.lane
		}
		if slot == nil {
			rest = append(rest, f)
			continue
		}
		*slot = strings.TrimSpace(renderValue(f.value, false))
	}
	return hdr, rest
}

// subject reads like "Chain · Delivery #7 (minter)".
func (hdr header) subject() string {
	var parts []string
	if hdr.lane != "" {
		parts = append(parts, strings.ToUpper(hdr.lane[:1])+strings.ToLower(hdr.lane[1:]))
	}
	delivery := ""
	if hdr.itemID != "" {
		delivery = "Delivery #" + hdr.itemID
	}
	switch {
	case delivery != "" && hdr.stage != "":
		parts = append(parts, delivery+" ("+hdr.stage+")")
	case delivery != "":
		parts = append(parts, delivery)
	case hdr.stage != "":
		parts = append(parts, hdr.stage)
	}
	return strings.Join(parts, " · ")
}

// lastWins drops earlier duplicates of a key, keeping the first position and
// the last value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, seen := index[f.key]; seen {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, groups []string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(append([]string(nil), groups...), a.Key)
		}
		for _, member := range v.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, field{key: key, value: v})
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// renderValue formats v for console output. Strings that would be ambiguous
// in a "key: value" line are quoted when quote is set.
func renderValue(v slog.Value, quote bool) string {
	var s string
	switch v = v.Resolve(); v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if quote && ambiguous(s) {
		return strconv.Quote(s)
	}
	return s
}

func ambiguous(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool { return r < ' ' || r == '=' || r == '"' })
}
