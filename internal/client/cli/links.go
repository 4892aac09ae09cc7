package cli

import (
	"context"
	"sync"
)

// replLinks is the deep-link source of the CLI: the launch argument is the
// cold-start URL and "open <url>" delivers warm links.
type replLinks struct {
	mu      sync.Mutex
	initial string
	subs    map[int]func(string)
	nextID  int
}

func newReplLinks(initial string) *replLinks {
	return &replLinks{initial: initial, subs: make(map[int]func(string))}
}

func (l *replLinks) InitialURL(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initial, nil
}

func (l *replLinks) Subscribe(fn func(url string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Deliver hands url to every subscriber and reports whether anyone listened.
func (l *replLinks) Deliver(url string) bool {
	l.mu.Lock()
	fns := make([]func(string), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(url)
	}
	return len(fns) > 0
}
