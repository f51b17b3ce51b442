package translate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"subalign/internal/logging"
	"subalign/internal/services"
	"subalign/internal/subtitle"
)

// DefaultChunkSize caps how many cues travel in one backend request.
const DefaultChunkSize = 2000

// Completer is the slice of a backend client the translator needs. The
// openai, grok, and gemini clients all satisfy it.
type Completer interface {
	Name() string
	Model() string
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, services.Usage, error)
}

// Options tunes a translation run.
type Options struct {
	// ChunkSize caps cues per backend request. Zero or negative selects
	// DefaultChunkSize.
	ChunkSize int
	// Instructions are appended to the system prompt, for style or
	// terminology guidance.
	Instructions string
	// Logger receives run diagnostics. Nil selects a nop logger.
	Logger *slog.Logger
}

// Stats summarizes a translation run.
type Stats struct {
	// Cues is the input cue count.
	Cues int
	// Translated counts cues whose text the backend replaced.
	Translated int
	// Skipped counts cues the backend response omitted or left empty;
	// they keep their original text.
	Skipped int
	// Chunks is the number of backend requests issued.
	Chunks int
	// Usage accumulates token counts across chunks.
	Usage services.Usage
}

// Translator rewrites cue text through a JSON-completion backend while
// leaving cue indices and timing untouched.
type Translator struct {
	backend Completer
	opts    Options
	logger  *slog.Logger
}

// New constructs a translator over the supplied backend.
func New(backend Completer, opts Options) *Translator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{
		backend: backend,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "translate"),
	}
}

type wireCue struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Translate returns a copy of cues with each text replaced by its
// translation. Language names are prompt context ("Chinese", "English");
// the target is required, the source may be empty when unknown. A backend
// or parse failure on any chunk fails the whole run; cues an otherwise
// valid response skips keep their original text and count as Skipped.
func (t *Translator) Translate(ctx context.Context, cues []subtitle.Cue, sourceLanguage, targetLanguage string) ([]subtitle.Cue, Stats, error) {
	stats := Stats{Cues: len(cues)}
	if strings.TrimSpace(targetLanguage) == "" {
		return nil, stats, services.Wrap(services.ErrInvalidInput, "translate", "run", "target language required", nil)
	}
	out := subtitle.Clone(cues)
	if len(out) == 0 {
		return out, stats, nil
	}

	logger := logging.WithContext(ctx, t.logger)
	prompt := buildTranslationPrompt(sourceLanguage, targetLanguage, t.opts.Instructions)
	logger.Info("translation starting",
		logging.Int("cues", len(out)),
		logging.Int("chunk_size", t.opts.ChunkSize),
		logging.String("backend", t.backend.Name()),
		logging.String("model", t.backend.Model()))

	for start := 0; start < len(out); start += t.opts.ChunkSize {
		end := start + t.opts.ChunkSize
		if end > len(out) {
			end = len(out)
		}
		if err := t.translateChunk(ctx, logger, prompt, out[start:end], &stats); err != nil {
			return nil, stats, err
		}
		stats.Chunks++
	}

	logger.Info("translation complete",
		logging.Int("translated", stats.Translated),
		logging.Int("skipped", stats.Skipped),
		logging.Int("chunks", stats.Chunks),
		logging.Int64("tokens", stats.Usage.Total()))
	return out, stats, nil
}

// translateChunk issues one backend request for the chunk and rewrites cue
// text in place from the index-keyed response.
func (t *Translator) translateChunk(ctx context.Context, logger *slog.Logger, prompt string, chunk []subtitle.Cue, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, t.backend.Name(), "translate", "", err)
	}

	payload := make([]wireCue, len(chunk))
	for i, cue := range chunk {
		payload[i] = wireCue{Index: cue.Index, Text: cue.Text}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrBackend, t.backend.Name(), "translate", "encode payload", err)
	}

	content, usage, err := t.backend.CompleteJSON(ctx, prompt, string(encoded))
	stats.Usage.Add(usage)
	if err != nil {
		return err
	}

	var parsed []wireCue
	if err := services.DecodeJSON(content, &parsed); err != nil {
		return services.Wrap(services.ErrBackend, t.backend.Name(), "translate", "parse payload", err)
	}

	byIndex := make(map[int]string, len(parsed))
	for _, entry := range parsed {
		byIndex[entry.Index] = strings.TrimSpace(entry.Text)
	}

	skippedBefore := stats.Skipped
	for i := range chunk {
		text, ok := byIndex[chunk[i].Index]
		if !ok || text == "" {
			stats.Skipped++
			continue
		}
		chunk[i].Text = text
		stats.Translated++
	}
	if skipped := stats.Skipped - skippedBefore; skipped > 0 {
		logging.WarnWithContext(logger, "backend response skipped cues", "translation_degraded",
			logging.Int("skipped", skipped),
			logging.Int("chunk_cues", len(chunk)),
			logging.String(logging.FieldImpact, "skipped cues keep their original text"))
	}
	return nil
}
