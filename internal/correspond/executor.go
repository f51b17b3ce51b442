package correspond

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"subalign/internal/logging"
	"subalign/internal/ratelimit"
	"subalign/internal/scorecache"
	"subalign/internal/services"
	"subalign/internal/subtitle"
)

const (
	// DefaultBatchSize is the number of source cues grouped into one
	// backend call.
	DefaultBatchSize = 16
	// DefaultConcurrency is the number of backend calls in flight at once.
	DefaultConcurrency = 4
	// DefaultCallTimeout bounds a single backend call including its
	// internal retries.
	DefaultCallTimeout = 60 * time.Second
)

// Options configures an Executor. Zero values fall back to the package
// defaults; Budget zero means unlimited.
type Options struct {
	BatchSize   int
	Concurrency int
	Budget      int
	CallTimeout time.Duration
	Limiter     *ratelimit.KeyedLimiter
	Cache       *scorecache.Store
	Logger      *slog.Logger
}

// Stats reports the executor's accumulated counters for one run.
type Stats struct {
	BackendCalls    int
	FailedCalls     int
	PairsScored     int
	CacheHits       int
	BudgetExhausted bool
	Usage           services.Usage
}

// textKey identifies a pair by content hashes rather than positions, so a
// judgment for repeated text is reused across positions.
type textKey struct {
	source    string
	reference string
}

// Executor turns pair-score demands into batched, cached, budgeted backend
// calls. One Executor serves one run over a fixed source and reference
// sequence; Score may be called repeatedly as the candidate window widens
// and only ever pays for pairs it has not seen.
type Executor struct {
	scorer    Scorer
	opts      Options
	logger    *slog.Logger
	source    []subtitle.Cue
	reference []subtitle.Cue
	srcHash   []string
	refHash   []string

	mu        sync.Mutex
	byText    map[textKey]float64
	byPair    map[Pair]float64
	requested map[Pair]struct{}
	pending   []scorecache.Entry
	stats     Stats
}

// NewExecutor builds an executor for one run. The scorer must not be nil;
// the cue slices are retained and must not be mutated during the run.
func NewExecutor(scorer Scorer, source, reference []subtitle.Cue, opts Options) *Executor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		scorer:    scorer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "correspond"),
		source:    source,
		reference: reference,
		srcHash:   hashTexts(source),
		refHash:   hashTexts(reference),
		byText:    make(map[textKey]float64),
		byPair:    make(map[Pair]float64),
		requested: make(map[Pair]struct{}),
	}
}

// hashTexts precomputes content hashes; cues whose normalized text is empty
// keep an empty hash and are never sent to the backend.
func hashTexts(cues []subtitle.Cue) []string {
	hashes := make([]string, len(cues))
	for i, cue := range cues {
		if subtitle.NormalizeText(cue.Text) == "" {
			continue
		}
		hashes[i] = subtitle.ContentHash(cue.Text)
	}
	return hashes
}

// Score ensures every requested pair has been offered to the scorer at most
// once, consulting the run cache and the persistent cache first, and returns
// a snapshot of all scores accumulated so far. A transient backend failure
// leaves its batch unscored and is not an error; an unavailable backend or a
// cancelled context aborts the run.
func (e *Executor) Score(ctx context.Context, pairs []Pair) (map[Pair]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, e.scorer.Name(), "score", "run cancelled", err)
	}

	needs, waiters := e.resolve(ctx, pairs)
	if len(needs) > 0 {
		if err := e.dispatch(ctx, needs, waiters); err != nil {
			return nil, err
		}
	}
	return e.Scores(), nil
}

// Scores returns a copy of the accumulated position-keyed score table.
func (e *Executor) Scores() map[Pair]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[Pair]float64, len(e.byPair))
	for pair, score := range e.byPair {
		out[pair] = score
	}
	return out
}

// Stats returns the executor's counters. Safe to call after Score returns.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// resolve filters the requested pairs down to those needing a backend call.
// Pairs already scored, already offered, or carrying empty text are dropped;
// run-cache and persistent-cache hits are filled in place. The returned
// needs slice holds one representative pair per distinct text pair, and
// waiters maps each text pair to every position pair awaiting its score.
func (e *Executor) resolve(ctx context.Context, pairs []Pair) ([]Pair, map[textKey][]Pair) {
	e.mu.Lock()
	var needs []Pair
	waiters := make(map[textKey][]Pair)
	var lookup []scorecache.Key
	for _, pair := range pairs {
		if pair.Source < 0 || pair.Source >= len(e.source) {
			continue
		}
		if pair.Reference < 0 || pair.Reference >= len(e.reference) {
			continue
		}
		if _, done := e.byPair[pair]; done {
			continue
		}
		srcHash, refHash := e.srcHash[pair.Source], e.refHash[pair.Reference]
		if srcHash == "" || refHash == "" {
			continue
		}
		key := textKey{source: srcHash, reference: refHash}
		if score, hit := e.byText[key]; hit {
			e.byPair[pair] = score
			e.stats.CacheHits++
			continue
		}
		if _, offered := e.requested[pair]; offered {
			continue
		}
		if _, waiting := waiters[key]; !waiting {
			needs = append(needs, pair)
			if e.opts.Cache != nil {
				lookup = append(lookup, scorecache.Key{
					Backend:       e.scorer.Name(),
					Model:         e.scorer.Model(),
					SourceHash:    srcHash,
					ReferenceHash: refHash,
				})
			}
		}
		waiters[key] = append(waiters[key], pair)
	}
	e.mu.Unlock()

	if e.opts.Cache == nil || len(lookup) == 0 {
		return needs, waiters
	}

	found, err := e.opts.Cache.Lookup(ctx, lookup)
	if err != nil {
		logging.WarnWithContext(e.logger, "score cache lookup failed", "cache_degraded",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pairs will be rescored through the backend"))
		return needs, waiters
	}
	if len(found) == 0 {
		return needs, waiters
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	remaining := needs[:0]
	for _, pair := range needs {
		key := textKey{source: e.srcHash[pair.Source], reference: e.refHash[pair.Reference]}
		cacheKey := scorecache.Key{
			Backend:       e.scorer.Name(),
			Model:         e.scorer.Model(),
			SourceHash:    key.source,
			ReferenceHash: key.reference,
		}
		score, hit := found[cacheKey]
		if !hit {
			remaining = append(remaining, pair)
			continue
		}
		e.byText[key] = score
		for _, waiter := range waiters[key] {
			e.byPair[waiter] = score
			e.stats.CacheHits++
		}
		delete(waiters, key)
	}
	return remaining, waiters
}

// dispatch groups needs into batches, applies the budget, and runs the
// batches through a bounded worker pool. Transient failures are counted and
// skipped; the first fatal error cancels the remaining batches.
func (e *Executor) dispatch(ctx context.Context, needs []Pair, waiters map[textKey][]Pair) error {
	batches := e.buildBatches(needs)

	e.mu.Lock()
	issue := batches
	if e.opts.Budget > 0 {
		remaining := e.opts.Budget - e.stats.BackendCalls
		if remaining < 0 {
			remaining = 0
		}
		if len(batches) > remaining {
			issue = batches[:remaining]
			if !e.stats.BudgetExhausted {
				e.stats.BudgetExhausted = true
				logging.WarnWithContext(e.logger, "call budget exhausted", "budget_exhausted",
					logging.Int("budget", e.opts.Budget),
					logging.Int("batches_skipped", len(batches)-remaining),
					logging.String(logging.FieldErrorHint, "raise alignment.budget or shrink the inputs"),
					logging.String(logging.FieldImpact, "unscored cues fall back to interpolation"))
			}
		}
	}
	for _, batch := range issue {
		for _, req := range batch {
			for _, cand := range req.Candidates {
				key := textKey{source: e.srcHash[req.Position], reference: e.refHash[cand.Position]}
				for _, waiter := range waiters[key] {
					e.requested[waiter] = struct{}{}
				}
			}
		}
	}
	e.mu.Unlock()

	if len(issue) == 0 {
		return nil
	}

	scoreCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, e.opts.Concurrency)
	outcomes := make(chan batchOutcome)
	var wg sync.WaitGroup
	for _, batch := range issue {
		wg.Add(1)
		go func(batch []Request) {
			defer wg.Done()
			outcomes <- e.runBatch(scoreCtx, sem, batch)
		}(batch)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var fatal error
	for outcome := range outcomes {
		if outcome.err != nil {
			if isFatal(outcome.err) {
				if fatal == nil {
					fatal = outcome.err
					cancel()
				}
				continue
			}
			e.mu.Lock()
			e.stats.FailedCalls++
			e.mu.Unlock()
			logging.WarnWithContext(e.logger, "scoring batch failed", "scoring_degraded",
				logging.Int("batch_size", outcome.size),
				logging.Error(outcome.err),
				logging.String(logging.FieldImpact, "affected cues fall back to interpolation"))
			continue
		}
		e.fold(outcome.result, waiters)
	}
	if fatal != nil {
		return fatal
	}

	e.flushPersistent(ctx)
	return nil
}

type batchOutcome struct {
	result BatchResult
	size   int
	err    error
}

// runBatch acquires a worker slot, paces through the limiter, and issues one
// scorer call under the per-call deadline.
func (e *Executor) runBatch(ctx context.Context, sem chan struct{}, batch []Request) batchOutcome {
	outcome := batchOutcome{size: len(batch)}
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		outcome.err = services.Wrap(services.ErrCancelled, e.scorer.Name(), "score batch", "", ctx.Err())
		return outcome
	}
	// The slot may have been freed by a worker that observed cancellation.
	if err := ctx.Err(); err != nil {
		outcome.err = services.Wrap(services.ErrCancelled, e.scorer.Name(), "score batch", "", err)
		return outcome
	}
	if e.opts.Limiter != nil {
		if err := e.opts.Limiter.Wait(ctx, e.scorer.Name()); err != nil {
			outcome.err = services.Wrap(services.ErrCancelled, e.scorer.Name(), "score batch", "rate limit wait", err)
			return outcome
		}
	}

	e.mu.Lock()
	e.stats.BackendCalls++
	e.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	result, err := e.scorer.ScoreBatch(callCtx, batch)
	if err != nil {
		outcome.err = err
		return outcome
	}
	outcome.result = result
	return outcome
}

// fold merges one batch result into the run caches and fills every position
// pair waiting on each scored text pair. Scores for pairs never requested
// are dropped.
func (e *Executor) fold(result BatchResult, waiters map[textKey][]Pair) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Usage.Add(result.Usage)
	for _, scored := range result.Scores {
		if scored.Source < 0 || scored.Source >= len(e.source) {
			continue
		}
		if scored.Reference < 0 || scored.Reference >= len(e.reference) {
			continue
		}
		key := textKey{source: e.srcHash[scored.Source], reference: e.refHash[scored.Reference]}
		pairs, wanted := waiters[key]
		if !wanted {
			continue
		}
		score := clampScore(scored.Score)
		if _, seen := e.byText[key]; !seen {
			e.stats.PairsScored++
			if e.opts.Cache != nil {
				e.pending = append(e.pending, scorecache.Entry{
					Key: scorecache.Key{
						Backend:       e.scorer.Name(),
						Model:         e.scorer.Model(),
						SourceHash:    key.source,
						ReferenceHash: key.reference,
					},
					Score: score,
				})
			}
		}
		e.byText[key] = score
		for _, pair := range pairs {
			e.byPair[pair] = score
		}
	}
}

// flushPersistent writes newly scored pairs to the persistent cache.
// Failures degrade to a warning; the run already has the scores in memory.
func (e *Executor) flushPersistent(ctx context.Context) {
	e.mu.Lock()
	entries := e.pending
	e.pending = nil
	e.mu.Unlock()
	if e.opts.Cache == nil || len(entries) == 0 {
		return
	}
	if err := e.opts.Cache.Put(ctx, entries); err != nil {
		logging.WarnWithContext(e.logger, "score cache write failed", "cache_degraded",
			logging.Int("entries", len(entries)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scores will be recomputed on the next run"))
	}
}

// buildBatches groups pairs by source cue and chunks the resulting requests
// into batches of at most BatchSize, in ascending source order.
func (e *Executor) buildBatches(needs []Pair) [][]Request {
	bySource := make(map[int][]Candidate)
	for _, pair := range needs {
		bySource[pair.Source] = append(bySource[pair.Source], Candidate{
			Position: pair.Reference,
			Cue:      e.reference[pair.Reference],
		})
	}
	positions := make([]int, 0, len(bySource))
	for pos := range bySource {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	var batches [][]Request
	var current []Request
	for _, pos := range positions {
		candidates := bySource[pos]
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Position < candidates[j].Position })
		current = append(current, Request{Position: pos, Source: e.source[pos], Candidates: candidates})
		if len(current) == e.opts.BatchSize {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// isFatal reports whether a scorer error must abort the run instead of
// degrading to a gap.
func isFatal(err error) bool {
	return errors.Is(err, services.ErrBackendUnavailable) || errors.Is(err, services.ErrCancelled)
}
