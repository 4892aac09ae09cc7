package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/xplit/internal/client/routing"
)

// consoleNavigator renders coordinator decisions as lines on the terminal.
type consoleNavigator struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleNavigator(out io.Writer) *consoleNavigator {
	return &consoleNavigator{out: out}
}

func (n *consoleNavigator) Replace(ctx context.Context, route routing.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "-> %s\n", route)
}

func (n *consoleNavigator) ShowError(ctx context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "!! %s\n", message)
}
