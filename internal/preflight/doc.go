// Package preflight provides readiness checks for the scoring backend
// and filesystem paths that subalign depends on.
//
// These checks run in two contexts:
//   - The CLI "subalign status" command calls RunAll to display overall
//     health before the user commits to a long alignment run.
//   - The align and translate commands use individual check functions
//     (CheckBackend, CheckDirectoryAccess) to fail fast on a missing
//     API key or an unwritable cache directory.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
