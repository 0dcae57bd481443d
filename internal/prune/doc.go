// Package prune removes directories left empty after relocation, deepest
// first. The root itself is never removed.
package prune
