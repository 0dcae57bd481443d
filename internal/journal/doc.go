// Package journal persists run history in SQLite.
//
// Each organizer run is one row in runs; every file the run settled is one
// row in moves. The journal is informational: runs never read it back to
// decide what to do, so a missing or reset journal does not change behavior.
package journal
