// Package preflight validates that catmatch can serve searches before it
// starts.
//
// The checks cover:
//   - Configuration validity
//   - Catalog loading
//   - Write permissions and free space in the data directory
//   - File descriptor limits
//   - Embedding provider reachability (non-critical)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
