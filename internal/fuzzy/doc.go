// Package fuzzy proposes probable Jira-to-ADO links for issues that carry no
// explicit link, by scoring title similarity against a pool of recent ADO
// work items.
//
// # Scoring
//
// Similarity is a token-sort ratio: both strings are lowercased, split on
// whitespace, their tokens sorted and rejoined, and the result compared with
// a normalized Levenshtein ratio scaled 0-100. Sorting tokens first makes
// the score insensitive to word order, which recovers matches where Jira and
// ADO phrase the same work with reordered words ("login fix for SSO" vs
// "SSO login fix"); plain substring or prefix matching misses those.
//
// # Selection
//
// For each unlinked issue the top `limit` pool titles by score are kept,
// then filtered to score >= threshold. Ties and duplicate titles resolve to
// the first match in pool order, so the pool's insertion order (the ADO
// query order, newest first) is part of the contract and is preserved
// end-to-end.
//
// # Confidence
//
// Scores bucket into presentation tiers: >= 90 Very High, >= 80 High,
// otherwise Medium. Tiering never filters; the threshold already did.
package fuzzy
