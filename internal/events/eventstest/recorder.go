// Package eventstest records published events for assertions.
package eventstest

import (
	"context"
	"encoding/json"
	"sync"
)

type Published struct {
	Topic string
	Key   string
	Event map[string]any
}

type Recorder struct {
	mu   sync.Mutex
	list []Published
	Err  error
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	if r.Err != nil {
		return r.Err
	}

	// round trip through JSON so assertions see what a consumer would see
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, Published{Topic: topic, Key: key, Event: m})
	return nil
}

func (r *Recorder) All() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Recorder) Types(topic string) []string {
	var out []string
	for _, p := range r.All() {
		if p.Topic == topic {
			if t, ok := p.Event["type"].(string); ok {
				out = append(out, t)
			}
		}
	}
	return out
}
