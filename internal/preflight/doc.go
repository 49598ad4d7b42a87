// Package preflight runs the environment checks behind `amanfind doctor`.
//
// Built-in checks cover the catalog location:
//   - free disk space (minimum 10MB)
//   - write permission in the catalog directory
//   - file descriptor limit (minimum 256, needed by watch)
//
// Callers add domain checks, such as catalog integrity, with WithCheck:
//
//	checker := preflight.New(preflight.WithCheck(integrity))
//	results := checker.RunAll(ctx, "/path/to/catalog.db")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
