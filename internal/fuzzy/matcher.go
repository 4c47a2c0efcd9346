package fuzzy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"tracebridge/internal/types"
)

// Confidence is the presentation tier derived from a match score.
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "Very High"
	ConfidenceHigh     Confidence = "High"
	ConfidenceMedium   Confidence = "Medium"
)

// ConfidenceForScore buckets a 0-100 score into its confidence tier.
func ConfidenceForScore(score int) Confidence {
	switch {
	case score >= 90:
		return ConfidenceVeryHigh
	case score >= 80:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}

// Match is one candidate linkage proposal. Several matches may share a
// JiraKey (up to the configured limit) and several may share an ADOID (one
// work item can resemble multiple issues). Matches are created once per run
// and never mutated.
type Match struct {
	JiraKey     string     `json:"jira_key"`
	JiraSummary string     `json:"jira_summary"`
	JiraStatus  string     `json:"jira_status"`
	ADOID       string     `json:"potential_ado_id"`
	ADOTitle    string     `json:"ado_title"`
	ADOState    string     `json:"ado_state"`
	ADOType     string     `json:"ado_work_item_type"`
	Score       int        `json:"match_score"`
	Confidence  Confidence `json:"confidence"`
}

// TokenSortRatio scores similarity between two strings on a 0-100 scale,
// insensitive to word order. Both inputs are lowercased, whitespace
// tokenized, token-sorted, and rejoined before computing a normalized
// Levenshtein ratio. Two empty strings score 100.
func TokenSortRatio(a, b string) int {
	na := tokenSort(a)
	nb := tokenSort(b)
	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return int(float64(longest-dist)/float64(longest)*100 + 0.5)
}

func tokenSort(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// FindMatches scores every unlinked issue against every pool title and
// returns the candidates that clear the threshold, at most limit per issue.
//
// Threshold outside 0-100 or a negative limit is a caller contract violation
// and fails fast; it is never silently clamped. Empty inputs return an empty
// result and no error. Output is ordered by unlinked-issue iteration order,
// then by descending score within an issue (ties in pool order).
func FindMatches(unlinked []types.JiraIssue, pool []types.PoolItem, threshold, limit int) ([]Match, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold must be between 0 and 100 (got %d)", threshold)
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative (got %d)", limit)
	}
	if len(unlinked) == 0 || len(pool) == 0 {
		return nil, nil
	}

	var matches []Match
	for _, issue := range unlinked {
		matches = append(matches, matchIssue(&issue, pool, threshold, limit)...)
	}
	return matches, nil
}

// scored pairs a pool index with its similarity score.
type scored struct {
	poolIdx int
	score   int
}

func matchIssue(issue *types.JiraIssue, pool []types.PoolItem, threshold, limit int) []Match {
	scores := make([]scored, 0, len(pool))
	for i, item := range pool {
		scores = append(scores, scored{poolIdx: i, score: TokenSortRatio(issue.Summary, item.Title)})
	}

	// Stable sort keeps pool order on equal scores: first-seen wins ties.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}

	var matches []Match
	for _, s := range scores {
		if s.score < threshold {
			continue
		}
		// Resolve the candidate id by title back-lookup. When several pool
		// items share a title the first in pool order wins, which may differ
		// from the scored item; the score is identical either way.
		item := findByTitle(pool, pool[s.poolIdx].Title)
		matches = append(matches, Match{
			JiraKey:     issue.Key,
			JiraSummary: issue.Summary,
			JiraStatus:  issue.Status,
			ADOID:       item.ID,
			ADOTitle:    item.Title,
			ADOState:    item.State,
			ADOType:     item.Type,
			Score:       s.score,
			Confidence:  ConfidenceForScore(s.score),
		})
	}
	return matches
}

func findByTitle(pool []types.PoolItem, title string) types.PoolItem {
	for _, item := range pool {
		if item.Title == title {
			return item
		}
	}
	return types.PoolItem{}
}
