// Package predicate provides the abstract filter model shared by all
// query construction in strata.
//
// A filter is a tree: Restriction leaves (one comparison each) grouped
// into RestrictionGroup nodes carrying an AND or OR connective. Groups
// nest to arbitrary depth. An empty group is a valid, vacuously true
// predicate and renders to nothing.
//
// The model is backend-agnostic. Operators are carried as strings and
// interpreted by dialect grammars; the package only knows enough about
// them to compute the effective operator for sequence values (IN) and
// to negate the operators that have a defined complement.
//
// Node is a sealed interface using the marker method pattern. Only
// types in this package implement it, which keeps type switches in
// grammars exhaustive.
package predicate
