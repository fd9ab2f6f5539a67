// Package schema models physical table shape: layouts, fields and
// indexes, plus the schema snapshot that mirrors the last-known-applied
// shape of a live database.
//
// A Layout is the shape of one table: fields in column order and named
// indexes. A Schema is a named collection of layouts. Both are mutated
// only through their setter methods, which enforce the structural
// invariants (at most one primary index per layout, enum options free
// of the separator character) at mutation time with always-active
// validation. Reads of missing fields, indexes or layouts fail with
// LookupError rather than returning a default.
//
// Identifiers are NFC-normalized before comparison so that visually
// identical table and column names cannot alias distinct entries.
package schema
