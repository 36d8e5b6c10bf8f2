package explore

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
)

// Registry keeps one conversation per browser session.
type Registry struct {
	assistant Assistant
	logger    logrus.FieldLogger
	now       func() time.Time

	mu    sync.Mutex
	convs map[string]*entry
}

type entry struct {
	conv     *Conversation
	lastUsed time.Time
}

func NewRegistry(assistant Assistant, logger logrus.FieldLogger) *Registry {
	return &Registry{
		assistant: assistant,
		logger:    logger,
		now:       time.Now,
		convs:     make(map[string]*entry),
	}
}

// Get returns the conversation for id, starting a new one under a fresh id
// when id is empty or unknown.
func (r *Registry) Get(id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.convs[id]; ok && id != "" {
		e.lastUsed = r.now()
		return e.conv, nil
	}

	newID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	conv := NewConversation(newID, r.assistant, r.logger)
	r.convs[newID] = &entry{conv: conv, lastUsed: r.now()}

	return conv, nil
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
}

// Prune drops conversations idle for longer than maxIdle and reports how
// many were removed.
func (r *Registry) Prune(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, e := range r.convs {
		if e.lastUsed.Before(cutoff) {
			delete(r.convs, id)
			removed++
		}
	}

	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}
