// Package query provides the abstract query model: a structured,
// backend-agnostic description of one read (source, joins, filter
// tree, projections, grouping, ordering, pagination) that dialect
// grammars render to SQL.
//
// A Query's source is an Alias over either a table layout or another
// Query (sub-query). Every identifier referenced in projections,
// grouping or ordering must resolve against the source's output
// namespace or one of the joins; resolution failure is a lookup error,
// never silently ignored.
//
// The filter tree is reached through Restrictions(); the capability
// set of predicate.RestrictionGroup is part of the query's contract by
// composition.
package query
