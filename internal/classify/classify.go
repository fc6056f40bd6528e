// Package classify recovers a best-guess title, author and genre from a book
// filename. It is a heuristic: results are deterministic but not guaranteed to
// be correct.
package classify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGenre is assigned when no keyword matches.
const DefaultGenre = "General"

// Rule names the delimiter pattern that produced a Name.
type Rule string

// Delimiter rules in precedence order.
const (
	RuleBy         Rule = "by"
	RuleDash       Rule = "dash"
	RuleComma      Rule = "comma"
	RuleUnderscore Rule = "underscore"
	RuleWhole      Rule = "whole"
)

// Decision names the disambiguation step that ordered the two halves of a
// delimited name.
type Decision string

// Disambiguation steps, highest rank first.
const (
	GazetteerMatch    Decision = "gazetteer"
	TitleWordMatch    Decision = "title_words"
	PositionalDefault Decision = "positional"
)

// Name is the parsed, non-authoritative view of a filename.
// An empty Author means no author could be recovered.
type Name struct {
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Genre    string   `json:"genre"`
	Rule     Rule     `json:"rule"`
	Decision Decision `json:"decision,omitempty"`
}

// HasAuthor reports whether an author was recovered.
func (n Name) HasAuthor() bool {
	return n.Author != ""
}

// splitter tries one delimiter rule. ok is false when the rule does not apply.
type splitter func(stem string) (n Name, ok bool)

// rules are tried in order; the first that applies wins.
var rules = []splitter{
	splitBy,
	splitDash,
	splitComma,
	splitUnderscore,
}

var titleCaser = cases.Title(language.English)

// Classify parses filename. It never fails: the worst case is an empty title,
// no author and the default genre.
func Classify(filename string) Name {
	stem := StripPDF(strings.TrimSpace(filename))

	n := Name{Title: strings.TrimSpace(stem), Rule: RuleWhole}
	for _, split := range rules {
		if parsed, ok := split(stem); ok {
			n = parsed
			break
		}
	}

	if n.Genre == "" {
		n.Genre = InferGenre(stem)
	}
	return n
}

// StripPDF removes a trailing ".pdf" in any letter case. Other extensions are
// left intact.
func StripPDF(name string) string {
	const ext = ".pdf"
	if len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
		return name[:len(name)-len(ext)]
	}
	return name
}

// splitBy handles "<title> by <author>", matching " by " in any case.
func splitBy(stem string) (Name, bool) {
	i := indexBy(stem)
	if i < 0 {
		return Name{}, false
	}
	return Name{
		Title:    strings.TrimSpace(stem[:i]),
		Author:   strings.TrimSpace(stem[i+len(" by "):]),
		Rule:     RuleBy,
		Decision: PositionalDefault,
	}, true
}

// splitDash handles "<a> - <b>" and decides which half is the author.
func splitDash(stem string) (Name, bool) {
	a, b, found := strings.Cut(stem, " - ")
	if !found {
		return Name{}, false
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)

	n := Name{Rule: RuleDash}
	n.Title, n.Author, n.Decision = disambiguate(a, b)
	return n, true
}

// splitComma handles "<a>,<b>"; a known author in front is moved to the author slot.
func splitComma(stem string) (Name, bool) {
	a, b, found := strings.Cut(stem, ",")
	if !found {
		return Name{}, false
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)

	if IsKnownAuthor(a) {
		return Name{Title: b, Author: a, Rule: RuleComma, Decision: GazetteerMatch}, true
	}
	return Name{Title: a, Author: b, Rule: RuleComma, Decision: PositionalDefault}, true
}

// splitUnderscore handles "<title>_<author>" and "<title>_<author...>_<genre>".
// Hyphens inside segments read as spaces.
func splitUnderscore(stem string) (Name, bool) {
	if !strings.Contains(stem, "_") {
		return Name{}, false
	}
	parts := strings.Split(stem, "_")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.ReplaceAll(p, "-", " "))
	}

	n := Name{Title: parts[0], Rule: RuleUnderscore, Decision: PositionalDefault}
	if len(parts) >= 3 {
		n.Author = strings.Join(nonEmpty(parts[1:len(parts)-1]), " ")
		if g := parts[len(parts)-1]; g != "" {
			n.Genre = titleCaser.String(g)
		}
		return n, true
	}

	n.Author = parts[1]
	if IsKnownAuthor(n.Title) && !IsKnownAuthor(n.Author) {
		n.Title, n.Author = n.Author, n.Title
		n.Decision = GazetteerMatch
	}
	return n, true
}

// indexBy finds " by " ignoring case. Only ASCII letters fold, so byte
// offsets in stem stay valid.
func indexBy(s string) int {
	for i := 0; i+4 <= len(s); i++ {
		if s[i] == ' ' && s[i+3] == ' ' && s[i+1]|0x20 == 'b' && s[i+2]|0x20 == 'y' {
			return i
		}
	}
	return -1
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
