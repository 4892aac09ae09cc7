// Package cli provides the interactive xplit command-line client.
//
// It stands in for the mobile screens: it wires configuration, the local
// database, the auth and profile services and the session coordinator, then
// runs a REPL. Routes chosen by the coordinator are printed as they happen,
// and "open <url>" feeds a deep link in as if the OS had delivered it.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewApp, StartSessionWatcher and runREPL for details.
package cli
