package classify

import "strings"

// UnknownAuthor labels placeholder covers when no author is recoverable.
const UnknownAuthor = "Unknown Author"

// TitleAuthor is the cheap two-pattern split used for placeholder covers:
// "<title> - <author>", then "<title> by <author>", else the whole stem with
// UnknownAuthor.
func TitleAuthor(filename string) (title, author string) {
	stem := strings.TrimSpace(StripPDF(strings.TrimSpace(filename)))

	if a, b, found := strings.Cut(stem, " - "); found {
		return orDefault(a, stem), orDefault(b, UnknownAuthor)
	}
	if i := indexBy(stem); i >= 0 {
		return orDefault(stem[:i], stem), orDefault(stem[i+len(" by "):], UnknownAuthor)
	}
	return stem, UnknownAuthor
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
