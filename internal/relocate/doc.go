// Package relocate moves discovered files into their category folders.
//
// Moves run on a bounded pool. A destination that already exists is reported
// as a name collision and never overwritten; on Linux the check and the
// rename happen in one renameat2(RENAME_NOREPLACE) call. Files crossing a
// filesystem boundary are copied, verified, renamed into place and only then
// removed from their original location.
package relocate
