// Package logging builds the process-wide slog logger.
//
// Two output formats are supported: a console handler that renders one line
// per record with the component promoted into the message prefix, and a JSON
// handler for machine consumption. NewFromConfig wires the format, level, and
// log-file destination from application config; New accepts raw options for
// tests and tools that do not load config.
package logging
