// Package scorecache persists correspondence scores across runs in a SQLite
// database. Backend calls dominate alignment cost, so re-running a pair of
// files (or aligning a corrected cut of the same release) should reuse every
// score the backend already produced. Entries are keyed by backend, model,
// and the content hashes of the two cue texts; timings never enter the key,
// so retimed files still hit.
package scorecache
