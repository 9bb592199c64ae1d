// Package organizer turns matched groups into an ordered plan of file
// operations and applies it to the library.
//
// The Planner renders destination paths from the configured folder and file
// templates. The Executor applies a plan strictly in order, backing up any
// file it would overwrite and appending a journal entry after each committed
// mutation; only journal failures abort a batch. The RollbackManager reads a
// journal back and plans the inverse moves, which the same Executor applies.
package organizer
