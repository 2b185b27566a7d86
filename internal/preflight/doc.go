// Package preflight provides readiness checks for the files, directories,
// and API endpoint a batch run depends on.
//
// The CLI "scribe preflight" command runs RunAll and renders each Result so
// an operator can catch a missing template or bad key before paying for a
// long row-by-row run. Individual check functions are exported for targeted
// use.
package preflight
