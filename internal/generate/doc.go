// Package generate turns one control row into one generated description.
//
// A Generator owns the loaded prompt template and an ordered chain of
// strategies. The default chain tries the synchronous chat completion first
// and falls back to the background agent when the completions endpoint is
// missing or the request fails in a transient way. Configuration failures and
// terminal agent failures end the chain immediately.
//
// Successful responses pass through Normalize, which drops a leading title
// echo and promotes the pipe-delimited header line to the front when the
// model buried it.
package generate
