package classifier

import "github.com/lukemcguire/siteranker/internal/rank"

// Vocabulary is the fixed keyword→importance-weight map the classifier
// validates responses against and the ranker scores against (spec.md §6).
// Values are transcribed verbatim from the weights the system was
// originally tuned against; they are deliberately not derived from any
// formula.
var Vocabulary = rank.Vocabulary{
	"department":  0.7,
	"contact":     1.0,
	"ACFR":        1.0,
	"budget":      1.0,
	"planning":    1.0,
	"officer":     0.9,
	"director":    0.9,
	"finance":     1.0,
	"elected":     0.7,
	"minutes":     1.0,
	"bid":         0.8,
	"purchasing":  1.0,
	"proposal":    1.0,
	"RFP":         1.0,
	"contract":    1.0,
	"funding":     1.0,
	"report":      0.7,
	"grant":       0.7,
	"improvement": 0.8,
	"project":     0.8,
	"initiative":  0.8,
}
