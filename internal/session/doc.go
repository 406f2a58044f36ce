// Package session tracks the email the assistant is currently focused on.
//
// A Manager owns at most one active email at a time. Opening an email
// resolves its canonical identity, checks whether a teammate already
// processed it, and starts a background poller for new notes. Every open
// bumps a generation counter; asynchronous results (identity upgrades,
// poller batches) carry the generation they were started under and are
// dropped when the user has moved on to another email, so a slow upgrade
// can never overwrite the state of a newer message.
package session
