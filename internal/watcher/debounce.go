package watcher

import (
	"log"
	"sync"
	"time"
)

// eventDebouncer batches raw filesystem events so a burst of writes to
// the same path collapses into a single index mutation. All its work
// happens on the timer goroutine time.AfterFunc spawns from add; it
// owns no goroutine of its own.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]eventType
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	owner    *Watcher
}

func newEventDebouncer(debounce time.Duration, owner *Watcher) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]eventType),
		debounce: debounce,
		owner:    owner,
	}
}

func (d *eventDebouncer) add(path string, et eventType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.events[path] = et
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

// stop marks the debouncer closed and cancels any pending flush, so a
// burst of events right before Close doesn't land on the index after
// the watcher has torn down.
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]eventType)
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}

	var creates, removes, changes []string
	for path, et := range events {
		switch et {
		case eventCreate:
			creates = append(creates, path)
		case eventRemove, eventRename:
			// A rename event names the old path, which no longer
			// exists; the new path arrives as its own create event.
			removes = append(removes, path)
		case eventWrite:
			changes = append(changes, path)
		}
	}

	log.Printf("watcher: processing %d debounced events", len(events))

	// Removals first to free the path for a following create, then
	// changes, then creates — matching the order in-flight rename
	// pairs are most likely to be delivered.
	for _, path := range removes {
		d.owner.applyRemove(path)
	}
	for _, path := range changes {
		d.owner.applyCreateOrWrite(path)
	}
	for _, path := range creates {
		d.owner.applyCreateOrWrite(path)
	}
}
