package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/xplit/internal/common"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  []string
	err   error
}

func (f *fakeExec) record(name, arg string) error {
	f.calls = append(f.calls, name)
	if arg != "" {
		f.args = append(f.args, arg)
	}
	return f.err
}

func (f *fakeExec) isLoggedIn() bool                 { return f.loggedIn }
func (f *fakeExec) SignUp(ctx context.Context) error { return f.record("signup", "") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login", "")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", "")
}
func (f *fakeExec) Forget(ctx context.Context) error              { return f.record("forget", "") }
func (f *fakeExec) Open(ctx context.Context, url string) error    { return f.record("open", url) }
func (f *fakeExec) Go(ctx context.Context, route string) error    { return f.record("go", route) }
func (f *fakeExec) Profile(ctx context.Context) error             { return f.record("profile", "") }
func (f *fakeExec) Avatar(ctx context.Context, path string) error { return f.record("avatar", path) }
func (f *fakeExec) Search(ctx context.Context, q string) error    { return f.record("search", q) }
func (f *fakeExec) Reset(ctx context.Context) error               { return f.record("reset", "") }
func (f *fakeExec) NewPassword(ctx context.Context) error         { return f.record("newpassword", "") }
func (f *fakeExec) Resend(ctx context.Context) error              { return f.record("resend", "") }
func (f *fakeExec) Verify(ctx context.Context) error              { return f.record("verify", "") }
func (f *fakeExec) Status(ctx context.Context) error              { return f.record("status", "") }
func (f *fakeExec) Foreground(ctx context.Context) error          { return f.record("foreground", "") }
func (f *fakeExec) Background(ctx context.Context) error          { return f.record("background", "") }

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	capturePrint(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"open xplit://callback?code=abc",
		"go profile-setup",
		"profile",
		"search ann lee",
		"status",
		"background",
		"foreground",
		"logout",
		"forget",
		"exit",
		"signup",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "open", "go", "profile", "search", "status", "background", "foreground", "logout", "forget"}, exec.calls)
	assert.Equal(t, []string{"xplit://callback?code=abc", "profile-setup", "ann lee"}, exec.args)
}

func TestRunREPL_PrintsErrorsAndKeepsGoing(t *testing.T) {
	lines := capturePrint(t)

	exec := &fakeExec{err: fmt.Errorf("sign in: %w", common.ErrInvalidCredentials)}
	input := strings.NewReader("login\nresend\nfoobar\n")
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "resend"}, exec.calls)
	assert.Contains(t, *lines, common.UserMessage(common.ErrInvalidCredentials))
	assert.Contains(t, *lines, "Unknown command: foobar")
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	capturePrint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "s" }, bufio.NewScanner(strings.NewReader("login\n")))

	assert.Empty(t, exec.calls)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Usage: open <url>", errorText(fmt.Errorf("%w: open <url>", errUsage)))
	assert.Equal(t, common.UserMessage(common.ErrNoSession), errorText(common.ErrNoSession))
}
