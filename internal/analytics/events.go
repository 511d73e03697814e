package analytics

import (
	"log/slog"
	"sync"

	"github.com/posthog/posthog-go"
)

const (
	EventTaskFetchedSuccess = "task_fetched_success"
	EventTaskFetchedError   = "task_fetched_error"
	EventTaskAdded          = "task_added"
	EventTaskRemoved        = "task_removed"
	EventTaskEdited         = "task_edited"
	EventTaskCompleted      = "task_completed"
	EventTaskError          = "task_error"
)

type Tracker interface {
	Track(event string, properties map[string]any)
}

type Nop struct{}

func (Nop) Track(string, map[string]any) {}

type PostHog struct {
	client     posthog.Client
	distinctID string
}

func NewPostHog(apiKey, endpoint, distinctID string) (*PostHog, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}
	return NewPostHogWithClient(client, distinctID), nil
}

func NewPostHogWithClient(client posthog.Client, distinctID string) *PostHog {
	return &PostHog{client: client, distinctID: distinctID}
}

func (p *PostHog) Track(event string, properties map[string]any) {
	err := p.client.Enqueue(posthog.Capture{
		DistinctId: p.distinctID,
		Event:      event,
		Properties: properties,
	})
	if err != nil {
		slog.Debug("analytics enqueue failed", "event", event, "error", err)
	}
}

// Close flushes queued events.
func (p *PostHog) Close() error {
	return p.client.Close()
}

type Event struct {
	Name       string
	Properties map[string]any
}

// Recorder keeps tracked events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Track(event string, properties map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Properties: properties})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}
	return names
}
