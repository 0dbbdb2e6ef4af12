package retrieval

import (
	"math"
	"sort"
	"strings"

	"github.com/sentinelstack/risk-engine/internal/models"
)

// rankLexical is the dependency-free fallback strategy: TF-IDF vectors over a
// shared vocabulary with cosine similarity. Deterministic for a given query
// and pool.
func rankLexical(query string, pool []Candidate, k int) []models.SimilarEvent {
	docs := make([][]string, 0, len(pool)+1)
	docs = append(docs, tokenize(query))
	for _, c := range pool {
		docs = append(docs, tokenize(c.Content))
	}

	vocab := buildVocabulary(docs)
	idf := inverseDocumentFrequency(vocab, docs)

	vectors := make([][]float64, len(docs))
	for i, tokens := range docs {
		vectors[i] = tfidfVector(tokens, vocab, idf)
	}

	queryVec := vectors[0]
	ranked := make([]models.SimilarEvent, 0, len(pool))
	for i, c := range pool {
		ranked = append(ranked, models.SimilarEvent{
			ID:         c.ID,
			Content:    c.Content,
			Similarity: round4(cosineSimilarity(queryVec, vectors[i+1])),
		})
	}

	return topK(ranked, k)
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func buildVocabulary(docs [][]string) []string {
	seen := make(map[string]struct{})
	for _, tokens := range docs {
		for _, tok := range tokens {
			seen[tok] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	return vocab
}

// inverseDocumentFrequency computes ln(N / (1 + df)) per vocabulary term over
// the N documents (query included).
func inverseDocumentFrequency(vocab []string, docs [][]string) map[string]float64 {
	idf := make(map[string]float64, len(vocab))
	for _, term := range vocab {
		df := 0
		for _, tokens := range docs {
			for _, tok := range tokens {
				if tok == term {
					df++
					break
				}
			}
		}
		idf[term] = math.Log(float64(len(docs)) / float64(1+df))
	}
	return idf
}

func tfidfVector(tokens []string, vocab []string, idf map[string]float64) []float64 {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	vector := make([]float64, len(vocab))
	for i, term := range vocab {
		vector[i] = float64(tf[term]) * idf[term]
	}
	return vector
}
