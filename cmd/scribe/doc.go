// Package main hosts the Scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree fronts the batch processor: the root command
// runs a generation pass over an input spreadsheet, and subcommands cover
// configuration scaffolding, preflight checks, run history, and notification
// testing. It centralizes configuration resolution and flag precedence so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
