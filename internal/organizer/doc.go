// Package organizer runs one reorganization pass over a root directory.
//
// A run walks the tree, relocates every discovered file into its category
// folder, then prunes directories left empty. Each phase starts only after the
// previous one has fully finished. Only a failed root precondition or
// cancellation stops a run; every other problem is recorded in the Report and
// the run keeps going. Runs on the same root are serialized through a lock
// file under the state directory, and each run is journaled when a journal
// store is supplied.
package organizer
