package agent

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// ToolSearchStrategy selects how SearchTools ranks candidates when the
// registry holds more tools than should be handed to the model in full.
type ToolSearchStrategy int

const (
	// SearchBM25 ranks tools by BM25 term relevance against name+description.
	SearchBM25 ToolSearchStrategy = iota
	// SearchRegex ranks tools by regex match count against name+description,
	// falling back to a literal substring count if the query isn't a valid
	// regex.
	SearchRegex
)

// bm25K1 and bm25B are the standard Okapi BM25 tuning constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// SearchTools ranks the registry's tools against query using strategy and
// returns the top-k matches, most relevant first. Used when the registered
// tool count exceeds a threshold and the full list would otherwise bloat
// every turn's context.
func (r *ToolRegistry) SearchTools(query string, strategy ToolSearchStrategy, topK int) []Tool {
	tools := r.AsLLMTools()
	if len(tools) == 0 || topK <= 0 {
		return nil
	}

	switch strategy {
	case SearchRegex:
		return regexSearch(query, tools, topK)
	default:
		return bm25Search(query, tools, topK)
	}
}

func toolDocText(t Tool) string {
	return t.Name() + " " + t.Description()
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func termFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		freqs[tok]++
	}
	return freqs
}

func calculateIDF(terms []string, tools []Tool) map[string]float64 {
	n := float64(len(tools))
	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		docCount := 0.0
		for _, tool := range tools {
			if strings.Contains(strings.ToLower(toolDocText(tool)), term) {
				docCount++
			}
		}
		idf[term] = math.Log((n-docCount+0.5)/(docCount+0.5) + 1.0)
	}
	return idf
}

func bm25Search(query string, tools []Tool, topK int) []Tool {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	idf := calculateIDF(queryTerms, tools)

	totalLen := 0
	docLens := make([]int, len(tools))
	for i, tool := range tools {
		docLens[i] = len(tokenize(toolDocText(tool)))
		totalLen += docLens[i]
	}
	avgDocLen := float64(totalLen) / float64(len(tools))
	if avgDocLen == 0 {
		avgDocLen = 1
	}

	type scored struct {
		tool  Tool
		score float64
	}
	scores := make([]scored, len(tools))
	for i, tool := range tools {
		freqs := termFrequencies(toolDocText(tool))
		docLen := float64(docLens[i])

		var score float64
		for _, term := range queryTerms {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			numerator := tf * (bm25K1 + 1.0)
			denominator := tf + bm25K1*(1.0-bm25B+bm25B*docLen/avgDocLen)
			score += idf[term] * numerator / denominator
		}
		scores[i] = scored{tool: tool, score: score}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	result := make([]Tool, 0, topK)
	for _, s := range scores {
		if s.score <= 0 {
			break
		}
		result = append(result, s.tool)
		if len(result) == topK {
			break
		}
	}
	return result
}

func regexSearch(query string, tools []Tool, topK int) []Tool {
	pattern, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return literalSearch(query, tools, topK)
	}

	type matched struct {
		tool  Tool
		count int
	}
	var matches []matched
	for _, tool := range tools {
		count := len(pattern.FindAllString(toolDocText(tool), -1))
		if count > 0 {
			matches = append(matches, matched{tool: tool, count: count})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].count > matches[j].count })

	result := make([]Tool, 0, topK)
	for _, m := range matches {
		result = append(result, m.tool)
		if len(result) == topK {
			break
		}
	}
	return result
}

func literalSearch(query string, tools []Tool, topK int) []Tool {
	needle := strings.ToLower(query)

	type matched struct {
		tool  Tool
		count int
	}
	var matches []matched
	for _, tool := range tools {
		count := strings.Count(strings.ToLower(toolDocText(tool)), needle)
		if count > 0 {
			matches = append(matches, matched{tool: tool, count: count})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].count > matches[j].count })

	result := make([]Tool, 0, topK)
	for _, m := range matches {
		result = append(result, m.tool)
		if len(result) == topK {
			break
		}
	}
	return result
}
