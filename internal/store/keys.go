package store

// Key layout:
//
//	book:<id>                 record JSON
//	idx:filename:<filename>   id of the record for that filename
//
// Records written by older deployments may be keyed "book:<filename>" with
// no index entry; GetBookByFilename checks that form too.
const (
	bookPrefix          = "book:"
	filenameIndexPrefix = "idx:filename:"
)

func bookKey(id string) []byte {
	return []byte(bookPrefix + id)
}

func filenameIndexKey(filename string) []byte {
	return []byte(filenameIndexPrefix + filename)
}
