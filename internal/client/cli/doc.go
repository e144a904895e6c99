// Package cli provides the interactive moneyxfer command-line client.
//
// It wires configuration, local session storage, the backend client and
// the auth service into a REPL. Every route change goes through the access
// guard; the prompt re-renders from the shared session state.
//
// Key features:
//   - Login / Logout with automatic logout when the token expires
//   - Send money, balance ledger and role-aware transaction history
//   - Online/offline indicator and session changes made by other processes
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
