package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	SignUp(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Forget(ctx context.Context) error
	Open(ctx context.Context, url string) error
	Go(ctx context.Context, route string) error
	Profile(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Search(ctx context.Context, query string) error
	Reset(ctx context.Context) error
	NewPassword(ctx context.Context) error
	Resend(ctx context.Context) error
	Verify(ctx context.Context) error
	Status(ctx context.Context) error
	Foreground(ctx context.Context) error
	Background(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the xplit CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF,
// when ctx is done, or when the user types "exit" or "quit".
//
// Commands
//
//	signup | login | logout       account flows
//	forget                        sign out and erase local data
//	open <url>                    deliver a deep link
//	go <route>                    guarded navigation
//	profile | avatar <file>       profile setup
//	search <query>                find profiles
//	reset | newpassword           password recovery
//	resend | verify               e-mail verification
//	status                        show UI state
//	foreground | background       app lifecycle
//	exit | quit                   leave the program
//
// Command errors are printed as their on-screen message and never end the
// loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("xplit %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := strings.Join(parts[1:], " ")

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: profile, avatar, search, go, open, newpassword, status, foreground, background, logout, forget, exit")
			} else {
				printlnFn("Available commands: signup, login, open, reset, resend, verify, go, status, exit")
			}
		case "signup":
			err = a.SignUp(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "forget":
			err = a.Forget(ctx)
		case "open":
			err = a.Open(ctx, arg)
		case "go":
			err = a.Go(ctx, arg)
		case "profile":
			err = a.Profile(ctx)
		case "avatar":
			err = a.Avatar(ctx, arg)
		case "search":
			err = a.Search(ctx, arg)
		case "reset":
			err = a.Reset(ctx)
		case "newpassword":
			err = a.NewPassword(ctx)
		case "resend":
			err = a.Resend(ctx)
		case "verify":
			err = a.Verify(ctx)
		case "status":
			err = a.Status(ctx)
		case "foreground":
			err = a.Foreground(ctx)
		case "background":
			err = a.Background(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn(errorText(err))
		}
	}
}

func errorText(err error) string {
	if errors.Is(err, errUsage) {
		return "Usage: " + strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	return common.UserMessage(err)
}
