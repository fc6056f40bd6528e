package classify

import "strings"

type genreKeywords struct {
	genre    string
	keywords []string
}

// genreTable is ordered; the first genre with any matching keyword wins,
// regardless of where the keyword appears in the name.
var genreTable = []genreKeywords{
	{"Mystery", []string{"mystery", "thriller", "detective", "crime", "suspense"}},
	{"Romance", []string{"romance", "romantic"}},
	{"Science Fiction", []string{"science fiction", "science-fiction", "sci-fi", "scifi"}},
	{"Fantasy", []string{"fantasy", "wizard", "dragon"}},
	{"Biography", []string{"biography", "autobiography", "memoir"}},
	{"History", []string{"history", "historical"}},
	{"Philosophy", []string{"philosophy", "philosophical"}},
	{"Self-Help", []string{"self-help", "self help", "motivation", "personal development"}},
	{"Business", []string{"business", "management", "economics", "finance"}},
	{"Technology", []string{"technology", "programming", "software", "computer"}},
	{"Health", []string{"health", "fitness", "wellness", "medical"}},
	{"Education", []string{"education", "textbook", "teaching"}},
	{"Horror", []string{"horror"}},
	{"Comedy", []string{"comedy", "humor", "humour"}},
	{"Drama", []string{"drama"}},
}

// InferGenre scans text case-insensitively against the keyword table.
func InferGenre(text string) string {
	lower := strings.ToLower(text)
	for _, g := range genreTable {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.genre
			}
		}
	}
	return DefaultGenre
}

// Genres lists every genre the table can produce, plus DefaultGenre.
func Genres() []string {
	out := make([]string, 0, len(genreTable)+1)
	for _, g := range genreTable {
		out = append(out, g.genre)
	}
	return append(out, DefaultGenre)
}
