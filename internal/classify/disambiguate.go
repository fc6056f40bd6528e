package classify

import "strings"

// disambiguation is one ranked step of the dash rule. ok is false when the
// step has no opinion and the next one should be consulted.
type disambiguation struct {
	decision Decision
	decide   func(a, b string) (aIsTitle bool, ok bool)
}

// dashSteps are consulted in rank order.
var dashSteps = []disambiguation{
	{GazetteerMatch, byGazetteer},
	{TitleWordMatch, byTitleWords},
	{PositionalDefault, func(string, string) (bool, bool) { return true, true }},
}

// disambiguate orders the halves of "<a> - <b>" into title and author.
func disambiguate(a, b string) (title, author string, decision Decision) {
	for _, step := range dashSteps {
		aIsTitle, ok := step.decide(a, b)
		if !ok {
			continue
		}
		if aIsTitle {
			return a, b, step.decision
		}
		return b, a, step.decision
	}
	return a, b, PositionalDefault
}

func byGazetteer(a, b string) (bool, bool) {
	aKnown, bKnown := IsKnownAuthor(a), IsKnownAuthor(b)
	switch {
	case aKnown && !bKnown:
		return false, true
	case bKnown && !aKnown:
		return true, true
	default:
		return false, false
	}
}

func byTitleWords(a, b string) (bool, bool) {
	if LooksLikeTitle(a) && !LooksLikeTitle(b) {
		return true, true
	}
	return false, false
}

// functionWords are short English words that rarely occur in personal names.
var functionWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "and": {}, "in": {}, "on": {},
	"to": {}, "for": {}, "with": {}, "at": {}, "from": {}, "into": {},
	"is": {}, "are": {}, "my": {}, "your": {}, "our": {}, "how": {},
	"what": {}, "why": {}, "who": {}, "as": {}, "or": {}, "not": {},
}

// LooksLikeTitle reports whether s has at least two words and contains an
// English function word.
func LooksLikeTitle(s string) bool {
	words := strings.Fields(strings.ToLower(s))
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if _, ok := functionWords[strings.Trim(w, ".,:;!?'\"()")]; ok {
			return true
		}
	}
	return false
}
