package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/pwmlink/pkg/msgs"
)

func TestTopicNeverPublished(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	assert.False(t, topic.Advertised())
	_, ok := topic.Latest()
	assert.False(t, ok)

	sub := topic.Subscribe()
	assert.False(t, sub.Updated())
	v, updated := sub.Update()
	assert.False(t, updated)
	assert.Equal(t, msgs.PWMControl{}, v)
}

func TestTopicLatestWins(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	sub := topic.Subscribe()
	for port := int32(1); port <= 3; port++ {
		topic.Publish(msgs.PWMControl{Timestamp: uint64(port), Port: port})
	}
	assert.True(t, topic.Advertised())
	assert.True(t, sub.Updated())

	v, updated := sub.Update()
	require.True(t, updated)
	assert.Equal(t, int32(3), v.Port)

	v, updated = sub.Update()
	assert.False(t, updated)
	assert.Equal(t, int32(3), v.Port)
}

func TestTopicIndependentSubscribers(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	fast, slow := topic.Subscribe(), topic.Subscribe()

	topic.Publish(msgs.PWMControl{Timestamp: 1, Port: 1})
	_, updated := fast.Update()
	assert.True(t, updated)

	topic.Publish(msgs.PWMControl{Timestamp: 2, Port: 2})
	v, updated := fast.Update()
	assert.True(t, updated)
	assert.Equal(t, int32(2), v.Port)

	v, updated = slow.Update()
	assert.True(t, updated)
	assert.Equal(t, int32(2), v.Port)
	_, updated = slow.Update()
	assert.False(t, updated)
}

func TestTopicRepublishSameValue(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	cmd := msgs.PWMControl{Timestamp: 10, Port: 1, Duty: 0.5, Frequency: 50}
	early, late := topic.Subscribe(), topic.Subscribe()

	topic.Publish(cmd)
	_, updated := early.Update()
	require.True(t, updated)

	topic.Publish(cmd)
	_, updated = early.Update()
	assert.False(t, updated)

	_, updated = late.Update()
	assert.True(t, updated)
	_, updated = late.Update()
	assert.False(t, updated)
}

func TestTopicSubscribeAfterPublish(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	topic.Publish(msgs.PWMControl{Timestamp: 1, Port: 5})
	v, updated := topic.Subscribe().Update()
	assert.True(t, updated)
	assert.Equal(t, int32(5), v.Port)
}

func TestTopicConcurrentReaders(t *testing.T) {
	topic := NewTopic(TopicPWMControl)
	const count = 1000

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			var last uint64
			for last < count {
				v, updated := sub.Update()
				if !updated {
					continue
				}
				// values are whole: port always mirrors timestamp.
				if uint64(v.Port) != v.Timestamp || v.Timestamp < last {
					t.Errorf("torn or reordered value %v after %d", v, last)
					return
				}
				last = v.Timestamp
			}
		}(topic.Subscribe())
	}
	for i := uint64(1); i <= count; i++ {
		topic.Publish(msgs.PWMControl{Timestamp: i, Port: int32(i)})
	}
	wg.Wait()
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.Topic(TopicPWMControl)
	assert.Same(t, a, r.Topic(TopicPWMControl))
	assert.NotSame(t, a, r.Topic("other"))
	assert.Equal(t, TopicPWMControl, a.Name())
}
