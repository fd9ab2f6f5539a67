// Package sqlite is the reference dialect: grammars that render the
// abstract query, record and schema models to SQLite statements, and a
// driver executing them over database/sql with mattn/go-sqlite3.
//
// Rendering is deterministic (stable column and clause order) and
// fully parameterized: values travel as statement args, never
// interpolated into SQL text. The only interpolated strings are
// identifiers (quoted) and enum CHECK options (validated at
// construction and single-quote escaped).
package sqlite
