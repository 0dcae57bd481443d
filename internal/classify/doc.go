// Package classify maps file names to destination categories.
//
// A Table is an ordered, immutable set of categories, each owning a set of
// lower-cased extensions. Construction rejects an extension claimed by two
// categories so that lookups never depend on iteration order. Names whose
// extension is missing or unrecognized fall into the reserved Unknown category.
package classify
