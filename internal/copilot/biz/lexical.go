package biz

import (
	"strings"

	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

// stopWords 为通用英文停用词表,出现在查询中通常不携带检索信号。
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "how": {}, "do": {},
	"does": {}, "did": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"about": {}, "tell": {}, "me": {}, "show": {}, "find": {}, "give": {},
}

// importantTerms 为领域重要词白名单,即使是短词或停用词也保留。
var importantTerms = map[string]struct{}{
	"unit": {}, "system": {}, "module": {}, "component": {}, "part": {},
	"sensor": {}, "camera": {}, "primary": {}, "secondary": {},
}

// LexicalBuilder 将自由文本查询转换为检索词列表和 AND-of-ORs 谓词。
// 纯函数,无副作用。
type LexicalBuilder struct{}

// NewLexicalBuilder 创建词法查询构建器。
func NewLexicalBuilder() *LexicalBuilder {
	return &LexicalBuilder{}
}

// Terms tokenizes the query and keeps a token when it is on the
// domain-important allowlist, or is not a stop word, or is longer than
// three characters; tokens of length one never survive. An empty result
// is a valid outcome and means the predicate fails open.
func (b *LexicalBuilder) Terms(queryText string) []string {
	var terms []string
	for _, token := range strings.Fields(strings.ToLower(queryText)) {
		token = strings.Trim(token, ".,!?;:\"'()")
		if token == "" {
			continue
		}

		_, important := importantTerms[token]
		_, stop := stopWords[token]
		if !important && stop && len(token) <= 3 {
			continue
		}
		if len(token) <= 1 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Predicate builds the AND-of-ORs predicate: each term contributes one
// disjunction over (content, title), groups conjoin across terms, and
// filter tags conjoin as equality disjunctions. With no terms and no
// filters the zero predicate matches everything.
func (b *LexicalBuilder) Predicate(terms, contentTypes, vehicleSystems []string) *query.Predicate {
	pred := &query.Predicate{}
	for _, term := range terms {
		pred.And(
			query.Contains("content", term),
			query.Contains("title", term),
		)
	}

	if len(contentTypes) > 0 {
		conds := make([]query.Cond, 0, len(contentTypes))
		for _, ct := range contentTypes {
			conds = append(conds, query.Eq("content_type", ct))
		}
		pred.And(conds...)
	}
	if len(vehicleSystems) > 0 {
		conds := make([]query.Cond, 0, len(vehicleSystems))
		for _, vs := range vehicleSystems {
			conds = append(conds, query.Eq("vehicle_system", vs))
		}
		pred.And(conds...)
	}
	return pred
}
