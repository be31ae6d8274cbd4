package localstore

import (
	"sync"
)

// notifier fans committed-write notifications out to subscribers. This is
// the primitive behind observable queries: the presentation layer subscribes
// to the collections its query touches and re-reads on each signal.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	closed bool
}

type subscription struct {
	collections map[Collection]struct{}
	ch          chan Collection
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]*subscription)}
}

func (n *notifier) subscribe(collections ...Collection) (<-chan Collection, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	set := make(map[Collection]struct{}, len(collections))
	for _, c := range collections {
		set[c] = struct{}{}
	}

	id := n.nextID
	n.nextID++

	// Buffered so a slow subscriber never blocks a commit. A dropped signal
	// is acceptable: the subscriber will re-read on the next one.
	sub := &subscription{collections: set, ch: make(chan Collection, 16)}
	n.subs[id] = sub

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return sub.ch, unsubscribe
}

func (n *notifier) notify(c Collection) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	for _, sub := range n.subs {
		if len(sub.collections) > 0 {
			if _, ok := sub.collections[c]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- c:
		default:
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = map[int]*subscription{}
}
