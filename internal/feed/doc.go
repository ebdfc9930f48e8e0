// Package feed computes day-grouped activity feeds for a subject and the
// incremental operations that bring a client's rendered feed up to date.
//
// Everything in this package is a pure function of its inputs: entries must be
// fully materialized before Diff or Build run, and no function blocks or holds
// state between calls. Concurrent use needs no locking except for Index, which
// is a single-owner value.
package feed
