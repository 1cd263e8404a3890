package queue

import "sync"

// Frontier is a FIFO queue of URLs awaiting a crawl.
// A membership set replaces the linear "already queued" scan.
type Frontier struct {
	mu     sync.Mutex
	items  []string
	queued map[string]struct{}
}

// NewFrontier creates a Frontier seeded with the given URLs, in order
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{queued: make(map[string]struct{})}
	for _, s := range seeds {
		f.Push(s)
	}
	return f
}

// Push appends url to the back of the queue.
// Returns false when url is already waiting in the queue.
func (f *Frontier) Push(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.items = append(f.items, url)
	return true
}

// Pop removes and returns the URL at the front of the queue.
// Returns "", false when the queue is empty.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return "", false
	}
	url := f.items[0]
	f.items[0] = ""
	f.items = f.items[1:]
	delete(f.queued, url)
	return url, true
}

// Contains reports whether url is currently waiting in the queue
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.queued[url]
	return ok
}

// Len returns the number of queued URLs
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
