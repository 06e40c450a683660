// Package logging configures apex/log for the keyedcache commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the environment variable that overrides the log level.
const EnvLevel = "KEYEDCACHE_LOG"

// Init installs a Handler writing to stderr. The level comes from
// KEYEDCACHE_LOG when set, else from fallback, else "info".
func Init(fallback string) {
	log.SetHandler(NewHandler(os.Stderr))
	log.SetLevel(Level(fallback))
}

// Level resolves the effective level.
func Level(fallback string) log.Level {
	s := strings.ToLower(os.Getenv(EnvLevel))
	if s == "" {
		s = strings.ToLower(fallback)
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Handler prints one line per entry: time, level initial, message, then
// fields sorted by name.
type Handler struct {
	mu sync.Mutex
	w  io.Writer
}

func NewHandler(w io.Writer) *Handler {
	return &Handler{w: w}
}

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", e.Timestamp.Format(time.DateTime), strings.ToUpper(e.Level.String()), e.Message)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
