// Package bm25 provides an in-memory inverted index with BM25 ranking.
// The engine owns its corpus statistics and supports incremental document
// add/update/remove alongside ranked term queries.
//
// The engine itself is a plain data structure with no internal locking.
// Mutations must be externally serialized; the search layer wraps one engine
// instance behind a sync.RWMutex so concurrent reads stay cheap.
package bm25

// DefaultK1 is the term frequency saturation parameter.
// Values in 1.2-2.0 are standard; higher means slower saturation.
const DefaultK1 = 1.2

// DefaultB is the document length normalization strength.
// 0 disables normalization, 1 applies it fully.
const DefaultB = 0.75

// Token is a single indexable term with its position inside a chunk.
type Token struct {
	// Text is the raw token text. Indexing lowercases it.
	Text string

	// Position is the token offset within its chunk.
	Position int

	// ImportanceWeight lets callers pre-bias tokens before scoring
	// (e.g., boost identifiers over literals). Default is 1.0.
	// Negative weights are floored at zero during indexing.
	ImportanceWeight float64
}

// Document is the unit of indexing: one chunk of one file.
type Document struct {
	// ID uniquely identifies the document across the index.
	ID string

	// FilePath is the path of the file this chunk came from.
	FilePath string

	// ChunkIndex is the position of this chunk within its file.
	ChunkIndex int

	// Tokens is the ordered token sequence. len(Tokens) is the
	// document length used for BM25 normalization.
	Tokens []Token

	// StartLine and EndLine bound the chunk in the source file (1-indexed).
	StartLine int
	EndLine   int

	// Language is the detected programming language, if any.
	Language string
}

// Posting records one document's occurrences of a term.
type Posting struct {
	// TermFrequency is the raw occurrence count in the document.
	TermFrequency int

	// WeightedFrequency is the sum of importance weights across
	// occurrences. Equals TermFrequency when all weights are 1.0.
	WeightedFrequency float64

	// Positions are the token offsets, kept for phrase support.
	Positions []int
}

// Match is a single ranked search result.
type Match struct {
	// DocID identifies the matched document.
	DocID string

	// Score is the summed BM25 contribution of all query terms.
	// Always finite and > 0.
	Score float64

	// TermScores maps each contributing query term to its individual
	// BM25 contribution, for diagnostics.
	TermScores map[string]float64

	// MatchedTerms lists the query terms present in the document.
	MatchedTerms []string
}

// Stats is a read-only snapshot of corpus statistics.
type Stats struct {
	// TotalDocuments is the number of live documents.
	TotalDocuments int

	// TotalTerms is the distinct vocabulary size.
	TotalTerms int

	// AvgDocumentLength is the mean token count per document.
	// Zero iff TotalDocuments is zero.
	AvgDocumentLength float64

	// K1 and B are the engine's tuning parameters.
	K1 float64
	B  float64
}

// termStats tracks corpus-wide frequency for one term.
type termStats struct {
	// documentFrequency is how many live documents contain the term.
	documentFrequency int

	// totalFrequency is the total occurrences across all documents.
	totalFrequency int
}

// docEntry tracks per-document state needed for scoring and removal.
type docEntry struct {
	// length is the token count.
	length int

	// terms lists the distinct (lowercased) terms the document
	// contributed, so removal can walk exactly its postings.
	terms []string
}
