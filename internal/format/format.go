// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format classifies user questions and dresses model replies with a
// heading that matches the kind of question asked.
package format

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// QueryType is the coarse category of a user question.
type QueryType string

const (
	QueryCode        QueryType = "code"
	QueryTutorial    QueryType = "tutorial"
	QueryExplanation QueryType = "explanation"
	QueryList        QueryType = "list"
	QueryComparison  QueryType = "comparison"
	QueryGeneral     QueryType = "general"
)

// Rule maps a QueryType to the substrings that select it.
type Rule struct {
	Type     QueryType
	Keywords []string
}

// rules is evaluated top to bottom; the first rule with any matching keyword wins.
var rules = []Rule{
	{QueryCode, []string{"code", "program", "function"}},
	{QueryTutorial, []string{"how to", "tutorial", "steps"}},
	{QueryExplanation, []string{"explain", "what is", "why"}},
	{QueryList, []string{"list", "examples", "types"}},
	{QueryComparison, []string{"vs", "compare", "difference"}},
}

// Rules returns a copy of the classification table in priority order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Type: r.Type, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// codeMarkers must appear in a code answer before it gets the code heading.
var codeMarkers = []string{"def ", "class ", "func "}

// EmptyReplyText replaces a blank model reply.
const EmptyReplyText = "I apologize, but I couldn't generate a response."

// Normalize folds compatibility forms (full-width letters, ligatures) and
// lower-cases s so keyword matching sees one spelling.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Classify returns the first QueryType whose keywords occur in query.
// Matching is plain substring search, so "vs" also matches inside "canvas".
func Classify(query string) QueryType {
	q := Normalize(query)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Type
			}
		}
	}
	return QueryGeneral
}

// Formatter adds headings and closing punctuation to model replies.
type Formatter struct {
	assistantName string
}

// New creates a Formatter. assistantName appears in the explanation heading.
func New(assistantName string) *Formatter {
	if assistantName == "" {
		assistantName = "YuktiAI"
	}
	return &Formatter{assistantName: assistantName}
}

// Format trims raw, prefixes the heading for qt and ensures terminal
// punctuation. A blank reply becomes EmptyReplyText.
func (f *Formatter) Format(raw string, qt QueryType) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return EmptyReplyText
	}

	switch qt {
	case QueryCode:
		if containsAny(text, codeMarkers) {
			text = "**Code Solution:**\n\n" + text
		}
	case QueryTutorial:
		text = "**Step-by-Step Guide:**\n\n" + text
	case QueryExplanation:
		text = "**" + f.assistantName + " Explains:**\n\n" + text
	case QueryComparison:
		text = "**Comparison Analysis:**\n\n" + text
	}

	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") &&
		!strings.HasSuffix(text, "?") && !strings.HasSuffix(text, ":") {
		text += "."
	}
	return text
}

// FormatFinal classifies query and formats raw accordingly.
func (f *Formatter) FormatFinal(raw, query string) string {
	return f.Format(raw, Classify(query))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
