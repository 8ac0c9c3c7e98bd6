package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiCyan   = "\033[36m"
)

// PrettyOptions configures a PrettyHandler.
type PrettyOptions struct {
	// Level is the minimum level written. Nil means info.
	Level   slog.Leveler
	NoColor bool
}

// PrettyHandler writes one line per record:
//
//	15:04:05.000 WARN  lattice misses an edge cell=cell_5_5 direction=W
//
// Attributes bound with With are rendered once, when bound, and precede the
// record's own attributes. Group names prefix keys with a dot.
type PrettyHandler struct {
	opts   PrettyOptions
	w      io.Writer
	mu     *sync.Mutex
	prefix string
	bound  string
}

func NewPrettyHandler(w io.Writer, opts PrettyOptions) *PrettyHandler {
	return &PrettyHandler{opts: opts, w: w, mu: &sync.Mutex{}}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	h.paint(&b, ansiDim, r.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	h.paint(&b, levelColour(r.Level), levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	var attrs strings.Builder
	attrs.WriteString(h.bound)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&attrs, h.prefix, a)
		return true
	})
	if attrs.Len() > 0 {
		h.paint(&b, ansiCyan, attrs.String())
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.bound)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	next := *h
	next.bound = b.String()
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *PrettyHandler) paint(b *strings.Builder, colour, s string) {
	if h.opts.NoColor {
		b.WriteString(s)
		return
	}
	b.WriteString(colour)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

// levelTag pads to the width of the longest tag so messages line up.
func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN "
	case l >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

func levelColour(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return ansiRed
	case l >= slog.LevelWarn:
		return ansiYellow
	case l >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiDim
	}
}

// writeAttr appends " key=value", flattening groups into dotted keys.
func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			writeAttr(b, inner, g)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return v.String()
	}
}
