// Package batch runs the sequential row loop that turns an input spreadsheet
// into an augmented output spreadsheet.
//
// The processor is deliberately single-threaded: one API request at a time,
// a fixed pause after every row, one output value per input row in input
// order. Row-level failures become cell text and never abort the run; only
// run-level preconditions (lock, credentials, template, table, required
// columns) do.
package batch
