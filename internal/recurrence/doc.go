// Package recurrence computes occurrence dates for recurring task rules.
//
// Next never fails: a rule missing the fields its type expects falls back to
// a plain interval advance, so one malformed definition cannot block the
// others in a batch.
package recurrence
