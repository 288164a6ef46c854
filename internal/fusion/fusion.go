package fusion

import (
	"sort"

	"github.com/Aman-CERP/rankfuse/internal/errors"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.). Lower values favor top-ranked results more aggressively.
const DefaultRRFConstant = 60.0

// Config controls weighted RRF fusion.
//
// The four backend weights are normalized to sum to 1.0 at engine
// construction; callers may supply any non-negative proportions.
type Config struct {
	// TextWeight is the weight for BM25/text results (0.0 - 1.0).
	TextWeight float64 `yaml:"text_weight"`

	// VectorWeight is the weight for vector/semantic results (0.0 - 1.0).
	VectorWeight float64 `yaml:"vector_weight"`

	// SymbolWeight is the weight for symbol/AST results (0.0 - 1.0).
	SymbolWeight float64 `yaml:"symbol_weight"`

	// FuzzyWeight is the weight for fuzzy match results (0.0 - 1.0).
	FuzzyWeight float64 `yaml:"fuzzy_weight"`

	// RRFK is the RRF smoothing constant (default: 60).
	RRFK float64 `yaml:"rrf_k"`

	// HybridBoost multiplies the combined score of results that appear
	// in more than one backend list. Must be > 1.0.
	HybridBoost float64 `yaml:"hybrid_boost"`

	// MaxResults caps the fused list length.
	MaxResults int `yaml:"max_results"`
}

// DefaultConfig returns the general-purpose fusion configuration.
func DefaultConfig() Config {
	return Config{
		TextWeight:   0.25,
		VectorWeight: 0.40,
		SymbolWeight: 0.25,
		FuzzyWeight:  0.10,
		RRFK:         DefaultRRFConstant,
		HybridBoost:  1.5,
		MaxResults:   20,
	}
}

// CodeSearchConfig returns a preset tuned for code queries: symbol matches
// weigh as much as vector matches and multi-backend agreement is boosted
// harder.
func CodeSearchConfig() Config {
	return Config{
		TextWeight:   0.20,
		VectorWeight: 0.35,
		SymbolWeight: 0.35,
		FuzzyWeight:  0.10,
		RRFK:         DefaultRRFConstant,
		HybridBoost:  1.8,
		MaxResults:   25,
	}
}

// NaturalLanguageConfig returns a preset tuned for natural-language queries:
// semantic similarity dominates and the hybrid boost is gentler.
func NaturalLanguageConfig() Config {
	return Config{
		TextWeight:   0.30,
		VectorWeight: 0.50,
		SymbolWeight: 0.15,
		FuzzyWeight:  0.05,
		RRFK:         DefaultRRFConstant,
		HybridBoost:  1.4,
		MaxResults:   20,
	}
}

// Validate rejects configurations that cannot produce a sound ranking.
func (c Config) Validate() error {
	if c.TextWeight < 0 || c.VectorWeight < 0 || c.SymbolWeight < 0 || c.FuzzyWeight < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"fusion weights must be non-negative", nil)
	}
	if c.RRFK <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"rrf_k must be positive, got %g", c.RRFK)
	}
	if c.HybridBoost <= 1.0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"hybrid_boost must be > 1.0, got %g", c.HybridBoost)
	}
	if c.MaxResults <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"max_results must be positive, got %d", c.MaxResults)
	}
	return nil
}

// normalize rescales the four backend weights to sum to 1.0.
// All-zero weights are left untouched.
func (c *Config) normalize() {
	sum := c.TextWeight + c.VectorWeight + c.SymbolWeight + c.FuzzyWeight
	if sum > 0 {
		c.TextWeight /= sum
		c.VectorWeight /= sum
		c.SymbolWeight /= sum
		c.FuzzyWeight /= sum
	}
}

// Engine fuses ranked lists from independent backends. It is purely
// computational and stateless across calls: safe to invoke concurrently
// with independent inputs.
type Engine struct {
	config Config
}

// NewEngine validates the configuration, normalizes its weights, and
// returns a fusion engine.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.normalize()
	return &Engine{config: config}, nil
}

// Config returns the engine's normalized configuration.
func (e *Engine) Config() Config {
	return e.config
}

// WeightFor returns the configured weight for a backend match type.
// Hybrid has no weight of its own; it only exists after fusion.
func (e *Engine) WeightFor(mt MatchType) float64 {
	switch mt {
	case MatchTypeText:
		return e.config.TextWeight
	case MatchTypeVector:
		return e.config.VectorWeight
	case MatchTypeSymbol:
		return e.config.SymbolWeight
	case MatchTypeFuzzy:
		return e.config.FuzzyWeight
	default:
		return 0
	}
}

// FuseResults merges the four named backend lists using each list's
// configured weight and match-type tag. Empty lists are fine; fusion never
// fails on empty input.
func (e *Engine) FuseResults(text, vector, symbol, fuzzy []SearchResult) []SearchResult {
	lists := [][]SearchResult{text, vector, symbol, fuzzy}
	weights := []float64{
		e.config.TextWeight,
		e.config.VectorWeight,
		e.config.SymbolWeight,
		e.config.FuzzyWeight,
	}
	return e.RRFFusion(lists, weights)
}

// RRFFusion performs generic N-way weighted Reciprocal Rank Fusion.
//
// For each list, the result at 0-based rank contributes
//
//	weight / (rrf_k + rank + 1)
//
// accumulated by canonical result identity. Results accumulated from more
// than one list are promoted to Hybrid and boosted. Lists beyond the
// weights slice (or vice versa) are ignored; lists are independent, so
// mismatched lengths are not an error.
func (e *Engine) RRFFusion(lists [][]SearchResult, weights []float64) []SearchResult {
	n := len(lists)
	if len(weights) < n {
		n = len(weights)
	}

	accum := make(map[string]*fusedResult)
	for i := 0; i < n; i++ {
		e.accumulate(accum, lists[i], weights[i])
	}

	return e.finalize(accum)
}

// accumulate folds one ranked list into the accumulator.
func (e *Engine) accumulate(accum map[string]*fusedResult, results []SearchResult, weight float64) {
	for rank := range results {
		r := &results[rank]
		contribution := weight / (e.config.RRFK + float64(rank) + 1.0)
		key := resultKey(r)

		if existing, ok := accum[key]; ok {
			existing.combinedScore += contribution
			existing.matchCount++
			existing.symbols = mergeSymbols(existing.symbols, r.Symbols)
			continue
		}

		accum[key] = &fusedResult{
			content:       r.Content,
			filePath:      r.FilePath,
			combinedScore: contribution,
			matchCount:    1,
			primaryType:   r.MatchType,
			lineNumber:    r.LineNumber,
			symbols:       append([]string(nil), r.Symbols...),
		}
	}
}

// promote applies hybrid promotion to one accumulated result: anything
// surfaced by more than one backend is re-tagged Hybrid and its combined
// score multiplied by the configured boost. Single-backend matches keep
// their original match type and score.
func (e *Engine) promote(fr *fusedResult) (MatchType, float64) {
	if fr.matchCount > 1 {
		return MatchTypeHybrid, fr.combinedScore * e.config.HybridBoost
	}
	return fr.primaryType, fr.combinedScore
}

// finalize converts the accumulator into the ranked output list: promote,
// sort by combined score descending with canonical-key-ascending tie-break
// (map iteration order is not deterministic, the key order stands in for
// insertion order), and truncate to MaxResults.
func (e *Engine) finalize(accum map[string]*fusedResult) []SearchResult {
	type keyed struct {
		key    string
		result SearchResult
	}

	results := make([]keyed, 0, len(accum))
	for key, fr := range accum {
		matchType, score := e.promote(fr)
		results = append(results, keyed{
			key: key,
			result: SearchResult{
				Content:    fr.content,
				FilePath:   fr.filePath,
				Score:      score,
				MatchType:  matchType,
				LineNumber: fr.lineNumber,
				Symbols:    fr.symbols,
				MatchCount: fr.matchCount,
			},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].result.Score != results[j].result.Score {
			return results[i].result.Score > results[j].result.Score
		}
		return results[i].key < results[j].key
	})

	if len(results) > e.config.MaxResults {
		results = results[:e.config.MaxResults]
	}

	final := make([]SearchResult, len(results))
	for i, k := range results {
		final[i] = k.result
	}
	return final
}
