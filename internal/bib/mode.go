package bib

// Mode distinguishes the two bibliography dialects.
type Mode string

const (
	ModeBibTeX   Mode = "bibtex"
	ModeBibLaTeX Mode = "biblatex"
)

// biblatexOnlyTypes lists entry types that exist in biblatex but not in
// classic bibtex. A database using any of them cannot be a bibtex database.
var biblatexOnlyTypes = map[string]bool{
	"bookinbook":     true,
	"collection":     true,
	"dataset":        true,
	"inreference":    true,
	"mvbook":         true,
	"mvcollection":   true,
	"mvproceedings":  true,
	"mvreference":    true,
	"online":         true,
	"patent":         true,
	"periodical":     true,
	"reference":      true,
	"report":         true,
	"set":            true,
	"software":       true,
	"suppbook":       true,
	"suppcollection": true,
	"suppperiodical": true,
	"thesis":         true,
}

// InferMode guesses the dialect from the entry types in use: a single
// biblatex-only type makes the database biblatex, otherwise bibtex.
func InferMode(db *Database) Mode {
	for _, e := range db.Entries() {
		if biblatexOnlyTypes[e.Type()] {
			return ModeBibLaTeX
		}
	}
	return ModeBibTeX
}
