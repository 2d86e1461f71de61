// Package sparse implements the BM25 keyword index used as the sparse leg
// of hybrid retrieval. Each collection gets its own Bleve index directory
// under the configured base path; a Manager keeps open index handles
// cached in-process and closes ones that go idle.
package sparse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	tokenizerName   = "rag_keyword_tokenizer"
	analyzerName    = "rag_keyword_analyzer"
	contentField    = "content"
	documentIDField = "document_id"
)

func init() {
	_ = registry.RegisterTokenizer(tokenizerName, tokenizerConstructor)
}

// Document is one chunk submitted for keyword indexing.
type Document struct {
	ID         string
	DocumentID string
	Content    string
}

// Result is a single BM25 match. Content and DocumentID are populated from
// Bleve's stored fields so a chunk found only by the sparse leg of hybrid
// search still carries a usable body and parent document reference.
type Result struct {
	ID         string
	DocumentID string
	Content    string
	Score      float32
}

type bleveDoc struct {
	Content    string `json:"content"`
	DocumentID string `json:"document_id"`
}

// Index wraps a single Bleve index for one collection.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// openIndex opens the index directory at path, creating it if absent.
func openIndex(path string) (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to build index mapping: %w", err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bm25 index at %s: %w", path, err)
	}

	return &Index{index: idx, path: path}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()

	err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": tokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, err
	}
	m.DefaultAnalyzer = analyzerName
	m.ScoringModel = "bm25"

	return m, nil
}

// Upsert indexes or reindexes the given documents.
func (x *Index) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("index is closed")
	}

	batch := x.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDoc{Content: d.Content, DocumentID: d.DocumentID}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}

	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute bm25 batch: %w", err)
	}
	return nil
}

// Search returns the top `limit` BM25 matches for queryStr.
func (x *Index) Search(ctx context.Context, queryStr string, limit int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []Result{}, nil
	}

	mq := bleve.NewMatchQuery(queryStr)
	mq.SetField(contentField)

	req := bleve.NewSearchRequest(mq)
	req.Size = limit
	req.Fields = []string{contentField, documentIDField}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search failed: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		content, _ := hit.Fields[contentField].(string)
		documentID, _ := hit.Fields[documentIDField].(string)
		results = append(results, Result{ID: hit.ID, DocumentID: documentID, Content: content, Score: hit.Score})
	}
	return results, nil
}

// Delete removes documents by ID.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("index is closed")
	}

	batch := x.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete bm25 documents: %w", err)
	}
	return nil
}

// DocCount returns the number of documents currently indexed.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return x.index.DocCount()
}

// Close releases the underlying Bleve index handle.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}

// tokenizerConstructor adapts Tokenize to Bleve's analysis.Tokenizer interface.
func tokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &keywordTokenizer{}, nil
}

type keywordTokenizer struct{}

func (t *keywordTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text)

	stream := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	lower := strings.ToLower(text)

	for _, tok := range tokens {
		start := strings.Index(lower[offset:], tok)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)

		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return stream
}
