package extractor

import "regexp"

// Field categories.
const (
	CategoryMin3m  = "min3m"
	CategoryNow    = "now"
	CategoryMin30d = "min30d"
)

// Variant is one tagged label pattern. The label regexp must match only the
// label; the amount and optional date are read from the text after it.
type Variant struct {
	Name  string
	Label *regexp.Regexp
}

// Group is the ordered list of variants for one field category. Earlier
// variants win over later ones regardless of where they occur in the text.
type Group struct {
	Category string
	Variants []Variant
	WithDate bool
}

// noLetter is a stand-in for a word boundary that also works for æ, ø and å.
// The bare "nå" label ends at the line break so a heading on its own line
// only reads the next line when that line is a value line.
const noLetter = `(?:^|[^\p{L}\p{N}])`

// DefaultGroups returns the Norwegian label patterns used on prisjakt.no.
func DefaultGroups() []Group {
	return []Group{
		{
			Category: CategoryMin3m,
			WithDate: true,
			Variants: []Variant{
				{Name: "laveste pris 3 mnd", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+3\s*(?:mnd\.?|måneder)`)},
				{Name: "laveste pris siste 3 mnd", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+(?:de\s+)?siste\s+3\s*(?:mnd\.?|måneder)`)},
				{Name: "laveste pris 90 dager", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+(?:(?:de\s+)?siste\s+)?90\s*dager`)},
			},
		},
		{
			Category: CategoryNow,
			Variants: []Variant{
				{Name: "laveste pris nå", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+nå`)},
				{Name: "dagens laveste pris", Label: regexp.MustCompile(`(?i)dagens\s+laveste\s+pris`)},
				{Name: "den billigste prisen (nå)", Label: regexp.MustCompile(`(?i)den\s+billigste\s+prisen[^\n]*?\(\s*nå\s*\)`)},
				{Name: "nå", Label: regexp.MustCompile(`(?im)` + noLetter + `nå` + `(?:[^\p{L}\p{N}\n]|$)`)},
			},
		},
		{
			Category: CategoryMin30d,
			Variants: []Variant{
				{Name: "laveste pris 30 dager", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+30\s*dager`)},
				{Name: "laveste pris siste 30 dager", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+(?:de\s+)?siste\s+30\s*dager`)},
				{Name: "laveste pris 1 mnd", Label: regexp.MustCompile(`(?i)laveste\s+pris\s+(?:(?:den\s+)?siste\s+)?(?:1\s*mnd\.?|1\s*måned)`)},
			},
		},
	}
}
