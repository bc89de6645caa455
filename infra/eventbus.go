package infra

import (
	"sync"

	"github.com/cloudcopper/warpdrive/ports"
	"github.com/cskr/pubsub/v2"
)

type EventBus struct {
	bus *pubsub.PubSub[ports.Topic, ports.Event]
	mu  sync.Mutex
	chs map[chan ports.Event]chan ports.Event
}

func NewEventBus() *EventBus {
	bus := &EventBus{
		bus: pubsub.New[ports.Topic, ports.Event](1),
		chs: make(map[chan ports.Event]chan ports.Event),
	}
	return bus
}

func (e *EventBus) Shutdown() {
	e.bus.Shutdown()
}

func (e *EventBus) Pub(topic ports.Topic, event ports.Event) {
	event.Topic = topic
	e.bus.Pub(event, topic)
}

func (e *EventBus) Unsub(ch chan ports.Event) {
	e.mu.Lock()
	inp, ok := e.chs[ch]
	delete(e.chs, ch)
	e.mu.Unlock()
	if ok {
		e.bus.Unsub(inp)
	}
}

// Sub returns unbounded channel subscribed to topics.
// Events of all topics keep the publish order.
// Publishers are never blocked by slow subscribers,
// as the events are queued in between.
func (e *EventBus) Sub(topics ...ports.Topic) chan ports.Event {
	inp := e.bus.Sub(topics...)
	out := make(chan ports.Event, 1)
	e.mu.Lock()
	e.chs[out] = inp
	e.mu.Unlock()

	go elastic(inp, out)
	return out
}

// elastic forwards events from inp to out over growing queue.
// The out is closed once inp is closed and queue drained.
func elastic(inp <-chan ports.Event, out chan<- ports.Event) {
	defer close(out)
	queue := []ports.Event{}
	for inp != nil || len(queue) > 0 {
		var send chan<- ports.Event
		var next ports.Event
		if len(queue) > 0 {
			send, next = out, queue[0]
		}
		select {
		case event, ok := <-inp:
			if !ok {
				inp = nil
				continue
			}
			queue = append(queue, event)
		case send <- next:
			queue = queue[1:]
		}
	}
}
