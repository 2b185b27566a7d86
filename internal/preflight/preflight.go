package preflight

import (
	"context"
	"path/filepath"

	"scribe/internal/config"
	"scribe/internal/sheet"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for a prospective batch run against
// inputPath. The API reachability check is skipped when no key is configured
// because the credential check already reports the actionable failure.
func RunAll(ctx context.Context, cfg *config.Config, inputPath string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredentials(cfg),
		CheckTemplate(cfg.Generation.TemplatePath),
		CheckInputFile(inputPath),
		CheckOutputDirectory(filepath.Dir(sheet.DerivedOutputPath(inputPath))),
		CheckDataDirectory(cfg.Paths.DataDir),
	}

	if cfg.API.APIKey != "" {
		results = append(results, CheckAPI(ctx, cfg))
	}

	return results
}

// AllPassed reports whether every result in the set passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
