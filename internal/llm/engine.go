package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Sumatoshi-tech/retrospect/internal/apicache"
)

// Prompt cache limits. Providers cap the number of cacheable blocks, and
// blocks below the platform minimum are never cached, so small blocks
// are merged together until each consolidated block clears the minimum.
const (
	maxCacheBlocks = 4
	minBlockChars  = 4500
)

// Cache-bust prefixes prepended on retry attempts. The random request ID
// changes the cache key and nudges the model toward a fresh answer.
const (
	jsonRetryPrefix = "[Request ID: %06d - Please ensure your response is properly formatted JSON]\n\n"
	textRetryPrefix = "[Request ID: %06d - Please provide a response]\n\n"
)

// requestIDSpan bounds the random retry request ID.
const requestIDSpan = 1000000

// Engine runs queries against a chain of models with caching, retries
// and fallbacks. The first model in the chain is the configured primary;
// when fallbacks exist the primary gets a single attempt before the
// chain advances, since a malformed response from a model usually
// repeats.
type Engine struct {
	primary            Provider
	cache              *apicache.Cache
	log                *RunLog
	factory            func(model string) (Provider, error)
	maxRetriesPerModel int
	fallbackModels     []string
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Primary            Provider
	Cache              *apicache.Cache
	Log                *RunLog
	Factory            func(model string) (Provider, error)
	MaxRetriesPerModel int
	FallbackModels     []string
}

// defaultMaxRetries applies when the configuration leaves the per-model
// attempt count unset.
const defaultMaxRetries = 3

// NewEngine builds an Engine. Factory resolves fallback model names to
// providers; it may be nil when no fallbacks are configured.
func NewEngine(cfg EngineConfig) *Engine {
	retries := cfg.MaxRetriesPerModel
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Engine{
		primary:            cfg.Primary,
		cache:              cfg.Cache,
		log:                cfg.Log,
		factory:            cfg.Factory,
		maxRetriesPerModel: retries,
		fallbackModels:     cfg.FallbackModels,
	}
}

// Model returns the primary model identifier.
func (e *Engine) Model() string {
	return e.primary.Model()
}

// QueryOpts parameterizes one engine query.
type QueryOpts struct {
	// ContextBlocks is the stable prompt context, cacheable per provider.
	ContextBlocks []string
	// Query is the per-call question.
	Query string
	// MaxTokens bounds the completion.
	MaxTokens int
	// FallbackModels overrides the engine-level fallback chain for this
	// query. Nil keeps the engine default; an empty non-nil slice
	// disables fallbacks.
	FallbackModels []string
}

// QueryText asks for a free-form text answer. Responses are cached by
// request hash; malformed (empty) responses are retried with a
// cache-busting prefix and surviving garbage entries are removed.
func (e *Engine) QueryText(ctx context.Context, opts QueryOpts) (string, error) {
	return e.query(ctx, opts, textRetryPrefix, func(text string) (string, bool) {
		trimmed := strings.TrimSpace(text)

		return trimmed, trimmed != ""
	})
}

// QueryJSON asks for a JSON object answer and returns the extracted raw
// JSON text. The extracted form, not the surrounding prose, is what gets
// cached under the original request key.
func (e *Engine) QueryJSON(ctx context.Context, opts QueryOpts) (string, error) {
	return e.query(ctx, opts, jsonRetryPrefix, ExtractJSON)
}

// query drives the model chain. validate turns a raw response into the
// final result, reporting whether the response is usable.
func (e *Engine) query(ctx context.Context, opts QueryOpts, retryPrefix string, validate func(string) (string, bool)) (string, error) {
	fallbacks := e.fallbackModels
	if opts.FallbackModels != nil {
		fallbacks = opts.FallbackModels
	}

	// The consolidated blocks are both the cache-key input and what goes
	// over the wire, so the marker cap holds on every path.
	contextBlocks := ConsolidateBlocks(opts.ContextBlocks)
	stableContext := strings.Join(contextBlocks, "\n\n")
	modelNames := []string{e.primary.Model()}
	modelNames = append(modelNames, fallbacks...)

	var attemptedKeys []string
	var lastErr error
	totalAttempts := 0

	for mi, name := range modelNames {
		provider, err := e.resolveProvider(mi, name)
		if err != nil {
			fmt.Printf("Warning: Could not initialize fallback model %s: %v\n", name, err)
			lastErr = err

			continue
		}
		if mi > 0 {
			fmt.Printf("Trying fallback model: %s\n", name)
		}

		attempts := e.maxRetriesPerModel
		if mi == 0 && len(modelNames) > 1 {
			// One shot for the primary: a structurally broken answer
			// tends to repeat, and the fallback chain is cheaper than
			// hammering the same model.
			attempts = 1
		}

		originalKey := apicache.Key(stableContext, opts.Query, provider.Model(), opts.MaxTokens)

		for attempt := 0; attempt < attempts; attempt++ {
			query := opts.Query
			if attempt > 0 {
				query = fmt.Sprintf(retryPrefix, rand.IntN(requestIDSpan)) + opts.Query
			}
			key := apicache.Key(stableContext, query, provider.Model(), opts.MaxTokens)

			if cached, ok := e.cache.Get(key); ok {
				if final, valid := validate(cached); valid {
					for _, k := range attemptedKeys {
						e.cache.Remove(k)
					}
					e.log.Record(stableContext, query, cached, 0, 0, true)

					return final, nil
				}
				// Stored garbage never self-heals.
				e.cache.Remove(key)
			}

			totalAttempts++

			var resp *Response
			err := withRetry(ctx, func() error {
				var callErr error
				resp, callErr = provider.Complete(ctx, Request{
					ContextBlocks: contextBlocks,
					Query:         query,
					MaxTokens:     opts.MaxTokens,
				})

				return callErr
			})
			if err != nil {
				lastErr = err

				continue
			}

			e.cache.Set(key, resp.Text)
			attemptedKeys = append(attemptedKeys, key)
			e.log.Record(stableContext, query, resp.Text, resp.CacheCreated, resp.CacheRead, false)

			final, valid := validate(resp.Text)
			if !valid {
				lastErr = fmt.Errorf("model %s returned an unusable response", provider.Model())

				continue
			}

			// Drop every raw attempt entry, then store the usable result
			// under the un-prefixed request key so future runs hit it
			// without replaying the retry dance. Exactly one entry stays
			// behind for the logical request.
			for _, k := range attemptedKeys {
				e.cache.Remove(k)
			}
			e.cache.Set(originalKey, final)

			return final, nil
		}
	}

	// Nothing usable came back; drop every response stored along the
	// way so the next run starts clean.
	for _, key := range attemptedKeys {
		e.cache.Remove(key)
	}

	return "", &ModelError{Models: modelNames, Attempts: totalAttempts, Last: lastErr}
}

func (e *Engine) resolveProvider(index int, name string) (Provider, error) {
	if index == 0 {
		return e.primary, nil
	}
	if e.factory == nil {
		return nil, fmt.Errorf("no provider factory configured for fallback model %s", name)
	}

	return e.factory(name)
}

// ConsolidateBlocks merges undersized context blocks with their
// neighbors and caps the count at the provider block limit by folding
// the leading blocks together. Order is preserved.
func ConsolidateBlocks(blocks []string) []string {
	var merged []string
	var buf strings.Builder
	for _, block := range blocks {
		if block == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(block)
		if buf.Len() >= minBlockChars {
			merged = append(merged, buf.String())
			buf.Reset()
		}
	}
	if buf.Len() > 0 {
		if len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + buf.String()
		} else {
			merged = append(merged, buf.String())
		}
	}

	if len(merged) > maxCacheBlocks {
		head := strings.Join(merged[:len(merged)-maxCacheBlocks+1], "\n\n")
		merged = append([]string{head}, merged[len(merged)-maxCacheBlocks+1:]...)
	}

	return merged
}
