// Package ledger persists run history in SQLite.
//
// Every batch invocation becomes a run row, and every spreadsheet row's
// outcome (generated text or failure detail) is recorded under it. The
// recorded text is what lets "scribe runs retry" rewrite an output file while
// only re-requesting the rows that failed.
package ledger
