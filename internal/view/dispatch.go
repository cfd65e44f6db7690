package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrNoHandler    = errors.New("no handler for event")
	ErrInvalidEvent = errors.New("invalid event")
)

// Event is a user action on a rendered record, read from the data-action
// and data-id attributes of the element that was activated. Any other
// data-* attribute lands in Values without its prefix.
type Event struct {
	List   string
	Action string
	ID     string
	Values map[string]string
}

// ParseEvent builds an Event for list from element attributes.
func ParseEvent(list string, attrs map[string]string) (Event, error) {
	e := Event{List: list}
	for k, v := range attrs {
		name, ok := strings.CutPrefix(k, "data-")
		if !ok {
			continue
		}
		switch name {
		case "action":
			e.Action = v
		case "id":
			e.ID = v
		default:
			if e.Values == nil {
				e.Values = make(map[string]string)
			}
			e.Values[name] = v
		}
	}
	if e.Action == "" {
		return Event{}, fmt.Errorf("%w: missing data-action", ErrInvalidEvent)
	}
	return e, nil
}

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

// Dispatcher routes delegated events to handlers registered per list and
// action, so rendered markup never embeds handler code.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[string]Handler)}
}

// On registers h for action on list, replacing any previous handler.
func (d *Dispatcher) On(list, action string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[list] == nil {
		d.handlers[list] = make(map[string]Handler)
	}
	d.handlers[list][action] = h
}

// Dispatch runs the handler registered for e.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	d.mu.RLock()
	h := d.handlers[e.List][e.Action]
	d.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("%w: %s/%s", ErrNoHandler, e.List, e.Action)
	}
	return h(ctx, e)
}
