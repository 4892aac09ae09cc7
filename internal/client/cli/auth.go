package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// errUsage is returned when a command is missing its argument.
var errUsage = errors.New("usage")

func (a *App) readCredentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(password)
	return email, string(password), nil
}

// SignUp prompts for an e-mail and password and creates an account.
func (a *App) SignUp(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	res, err := a.flows.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if res.Session == nil {
		fmt.Fprintf(a.out, "Check %s for a confirmation link, then run: open <link>\n", email)
	}
	return nil
}

// Login prompts for credentials and signs in. The coordinator prints where
// the user lands.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	return a.flows.SignIn(ctx, email, password)
}

func (a *App) Logout(ctx context.Context) error {
	return a.flows.SignOut(ctx)
}

// Forget signs out and erases the local session and UI snapshot.
func (a *App) Forget(ctx context.Context) error {
	if err := a.flows.SignOut(ctx); err != nil {
		a.log.Warn(ctx, "sign out before wipe failed", "error", err)
	}
	if err := a.wipe(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Local data erased.")
	return nil
}

// Open delivers url as an incoming deep link.
func (a *App) Open(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: open <url>", errUsage)
	}
	if !a.links.Deliver(url) {
		a.log.Warn(ctx, "deep link arrived with no listener")
	}
	return nil
}

// Go navigates to a screen through the route guard.
func (a *App) Go(ctx context.Context, target string) error {
	if target == "" {
		return fmt.Errorf("%w: go <route>", errUsage)
	}
	a.flows.Navigate(ctx, routing.Normalize(target))
	return nil
}

// Profile runs profile setup: handle and display name.
func (a *App) Profile(ctx context.Context) error {
	handle, err := getSimpleText(a.reader, "Choose a handle", a.out)
	if err != nil {
		return err
	}
	available, err := a.profiles.IsHandleAvailable(ctx, handle)
	if err != nil {
		return err
	}
	if !available {
		return common.ErrHandleTaken
	}
	name, err := getSimpleText(a.reader, "Display name", a.out)
	if err != nil {
		return err
	}
	p, err := a.flows.CreateProfile(ctx, handle, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, @%s!\n", p.Handle)
	return nil
}

// Avatar uploads an image file and stores its URL on the profile.
func (a *App) Avatar(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: avatar <file>", errUsage)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	url, err := a.profiles.UploadAvatar(ctx, f, contentType)
	if err != nil {
		return err
	}
	if _, err := a.profiles.UpdateProfile(ctx, models.ProfileUpdate{AvatarURL: &url}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Avatar:", url)
	return nil
}

// Search lists profiles matching query.
func (a *App) Search(ctx context.Context, query string) error {
	found, err := a.profiles.SearchProfiles(ctx, query, 0)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(a.out, "No profiles found.")
		return nil
	}
	for _, p := range found {
		fmt.Fprintf(a.out, "@%-30s %s\n", p.Handle, p.DisplayName)
	}
	return nil
}

// Reset requests a password recovery e-mail.
func (a *App) Reset(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.flows.RequestPasswordReset(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the address is registered, a reset link is on its way.")
	return nil
}

// NewPassword sets the password after a recovery link signed the user in.
func (a *App) NewPassword(ctx context.Context) error {
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	if err := a.flows.UpdatePassword(ctx, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated. Please sign in again.")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	if err := a.flows.ResendVerification(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Verification e-mail sent.")
	return nil
}

// Verify checks whether the pending e-mail was confirmed elsewhere.
func (a *App) Verify(ctx context.Context) error {
	ok, err := a.flows.CheckVerification(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Not verified yet.")
	}
	return nil
}

// Status prints the UI state snapshot.
func (a *App) Status(ctx context.Context) error {
	st := a.ui.Snapshot()
	fmt.Fprintf(a.out, "route:          %s\n", a.flows.CurrentRoute())
	fmt.Fprintf(a.out, "authenticated:  %t\n", st.IsAuthenticated)
	fmt.Fprintf(a.out, "resolving:      %t\n", st.AuthResolving)
	fmt.Fprintf(a.out, "profile:        %s\n", st.ProfileExists)
	if st.EmailPendingVerification != "" {
		fmt.Fprintf(a.out, "pending e-mail: %s\n", st.EmailPendingVerification)
	}
	return nil
}

func (a *App) Foreground(ctx context.Context) error {
	a.flows.Foreground(ctx)
	return nil
}

func (a *App) Background(ctx context.Context) error {
	a.flows.Background()
	return nil
}
