// Package walk discovers the regular files under a root directory.
//
// Each subdirectory is an independent unit of work handed to a fixed-size
// worker pool, so sibling branches are read in parallel without spawning one
// goroutine per directory. A pending counter tracks queued plus in-flight
// directories; the walk is complete only when it drops to zero, which is the
// barrier the organizer waits on before relocation starts. Discovered paths
// accumulate in a mutex-guarded Collection.
//
// Directories named after a category are already organized and are never
// entered. Unreadable directories are recorded as traversal skips and the
// rest of the tree is still walked.
package walk
