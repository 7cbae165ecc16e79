// Package bus provides last-value-wins topics for handing commands from
// one producer to any number of independently scheduled consumers.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/robotalks/pwmlink/pkg/msgs"
)

// TopicPWMControl is the topic carrying parsed PWM commands.
const TopicPWMControl = "pwm_control"

type sample struct {
	value      msgs.PWMControl
	generation uint64
}

// Topic holds the most recently published command. Publish replaces the
// whole value atomically and never blocks or queues; readers that poll
// slower than the producer only see the latest value.
type Topic struct {
	name       string
	generation atomic.Uint64
	latest     atomic.Pointer[sample]
}

// NewTopic creates an empty Topic.
func NewTopic(name string) *Topic {
	return &Topic{name: name}
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.name
}

// Publish stores v as the latest value. Publishing a value equal to the
// current one is a no-op, so subscribers do not see it as an update.
// Only one goroutine may publish to a Topic.
func (t *Topic) Publish(v msgs.PWMControl) {
	if cur := t.latest.Load(); cur != nil && cur.value == v {
		return
	}
	t.latest.Store(&sample{value: v, generation: t.generation.Add(1)})
}

// Advertised reports whether the topic has ever been published.
func (t *Topic) Advertised() bool {
	return t.latest.Load() != nil
}

// Latest returns the current value without consuming it.
func (t *Topic) Latest() (msgs.PWMControl, bool) {
	cur := t.latest.Load()
	if cur == nil {
		return msgs.PWMControl{}, false
	}
	return cur.value, true
}

// Subscribe creates a Subscription which has seen nothing yet.
func (t *Topic) Subscribe() *Subscription {
	return &Subscription{topic: t}
}

// Subscription tracks what one consumer has observed on a Topic.
// It must be used from a single goroutine.
type Subscription struct {
	topic *Topic
	seen  uint64
}

// Update returns the latest value and whether it was published after the
// previous call. It never blocks.
func (s *Subscription) Update() (v msgs.PWMControl, updated bool) {
	cur := s.topic.latest.Load()
	if cur == nil {
		return
	}
	if cur.generation != s.seen {
		s.seen, updated = cur.generation, true
	}
	return cur.value, updated
}

// Updated reports whether Update would return a new value.
func (s *Subscription) Updated() bool {
	cur := s.topic.latest.Load()
	return cur != nil && cur.generation != s.seen
}

// Registry maps topic names to topics, creating them on first use.
type Registry struct {
	lock   sync.Mutex
	topics map[string]*Topic
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]*Topic)}
}

// Topic returns the named topic.
func (r *Registry) Topic(name string) *Topic {
	r.lock.Lock()
	defer r.lock.Unlock()
	t, ok := r.topics[name]
	if !ok {
		t = NewTopic(name)
		r.topics[name] = t
	}
	return t
}
