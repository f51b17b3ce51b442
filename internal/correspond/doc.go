// Package correspond estimates how likely a source cue and a reference cue
// express the same content. Backends are variants behind the Scorer
// interface: an AI scorer that batches cue pairs into JSON completion
// requests, and a deterministic lexical scorer for same-language material
// and offline runs. The Executor owns everything around a scorer — batching,
// concurrency, pacing, budget, and the per-run score cache — so the aligner
// only ever sees a table of pair scores.
package correspond
