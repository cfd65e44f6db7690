// Package notify delivers transient, dismissible banners to the user.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Kind is the visual variant of a banner.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// DefaultTTL is how long a banner stays visible unless dismissed.
const DefaultTTL = 5 * time.Second

// dedupPrefix is the number of leading characters two banners must share
// for the newer one to replace the older one.
const dedupPrefix = 20

// Notifier surfaces a message to the user.
type Notifier interface {
	Notify(kind Kind, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind Kind, message string)

// Notify calls f(kind, message).
func (f NotifierFunc) Notify(kind Kind, message string) { f(kind, message) }

// Discard is a Notifier that drops every message.
var Discard Notifier = NotifierFunc(func(Kind, string) {})

// Banner is a single visible notification.
type Banner struct {
	ID        int
	Kind      Kind
	Message   string
	PostedAt  time.Time
	ExpiresAt time.Time
}

// Board keeps the set of currently visible banners.
type Board struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	nextID  int
	banners []Banner
}

// NewBoard creates a Board whose banners expire after ttl.
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now}
}

// Notify posts a banner with the board's default lifetime.
func (b *Board) Notify(kind Kind, message string) {
	b.Post(kind, message, b.ttl)
}

// Post adds a banner and returns its id. Visible banners whose text starts
// with the same prefix are removed first, so repeated failures do not stack.
func (b *Board) Post(kind Kind, message string, ttl time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	prefix := leading(message, dedupPrefix)

	kept := b.banners[:0]
	for _, existing := range b.banners {
		if existing.ExpiresAt.After(now) && leading(existing.Message, dedupPrefix) != prefix {
			kept = append(kept, existing)
		}
	}
	b.banners = kept

	b.nextID++
	b.banners = append(b.banners, Banner{
		ID:        b.nextID,
		Kind:      kind,
		Message:   message,
		PostedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	return b.nextID
}

// Dismiss removes a banner before it expires.
func (b *Board) Dismiss(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, banner := range b.banners {
		if banner.ID == id {
			b.banners = append(b.banners[:i], b.banners[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the banners that have not expired yet, oldest first.
func (b *Board) Active() []Banner {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	kept := b.banners[:0]
	for _, banner := range b.banners {
		if banner.ExpiresAt.After(now) {
			kept = append(kept, banner)
		}
	}
	b.banners = kept

	out := make([]Banner, len(kept))
	copy(out, kept)
	return out
}

func leading(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// WriterNotifier prints every banner as one line, e.g. for a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes "[kind] message".
func (n *WriterNotifier) Notify(kind Kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", kind, message)
}
