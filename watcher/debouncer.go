package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of raw events into one FileChangeEvent per
// path per quiet period. Each path gets its own timer; a new raw event for
// the same path re-arms it, so the last observed change type is the one
// that eventually fires. Rename events bypass debouncing entirely.
type Debouncer struct {
	delay  time.Duration
	output chan FileChangeEvent
	done   chan struct{}

	// sending counts in-flight deliveries so Close can wait for them
	// before closing the output channel.
	sending sync.WaitGroup

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]ChangeType
	closed  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		output:  make(chan FileChangeEvent, 256),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]ChangeType),
	}
}

// Output returns the stream of coalesced events. Exactly one consumer
// should read it.
func (d *Debouncer) Output() <-chan FileChangeEvent { return d.output }

// Add records a raw event for path, (re)arming its quiet-period timer.
// The change type of the most recent raw event wins.
func (d *Debouncer) Add(path string, changeType ChangeType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.pending[path] = changeType
	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() { d.fire(path) })
}

// EmitRename sends a rename event immediately, without debouncing. Any
// pending event for the old path is dropped; renames are atomic and the
// new path will be indexed fresh.
func (d *Debouncer) EmitRename(oldPath, newPath string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if timer, ok := d.timers[oldPath]; ok {
		timer.Stop()
		delete(d.timers, oldPath)
		delete(d.pending, oldPath)
	}
	d.sending.Add(1)
	d.mu.Unlock()

	d.send(FileChangeEvent{
		Path:      newPath,
		Type:      Renamed,
		Timestamp: time.Now(),
		OldPath:   oldPath,
	})
}

// fire emits the pending event for path after its quiet period elapsed.
func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	changeType, ok := d.pending[path]
	delete(d.pending, path)
	delete(d.timers, path)
	if ok {
		d.sending.Add(1)
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	d.send(FileChangeEvent{
		Path:      path,
		Type:      changeType,
		Timestamp: time.Now(),
	})
}

// send delivers one event without holding the mutex, so a stalled
// consumer can never wedge Add or Close. A delivery raced by Close is
// abandoned via the done channel. Callers must have incremented sending
// under the mutex.
func (d *Debouncer) send(ev FileChangeEvent) {
	defer d.sending.Done()
	select {
	case d.output <- ev:
	case <-d.done:
	}
}

// Close cancels all pending timers and closes the output stream. Events
// whose quiet period had not elapsed are discarded; in-flight deliveries
// are either received or abandoned before the channel closes.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
	d.pending = make(map[string]ChangeType)
	close(d.done)
	d.mu.Unlock()

	// Senders registered before closed was set are now unblocked by done;
	// once they drain, closing output cannot race a send.
	d.sending.Wait()
	close(d.output)
}
