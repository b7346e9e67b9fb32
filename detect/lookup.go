package detect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// substringDelimiter marks a lookup value as a substring token when it
// both starts and ends with it, e.g. "%osint%".
const substringDelimiter = "%"

// lookup is a normalized predicate value.
type lookup struct {
	token     string
	substring bool
}

// normalizer lower-cases lookup and event values. A cases.Caser keeps state
// between calls, so each evaluation owns its normalizer.
type normalizer struct {
	caser cases.Caser
}

func newNormalizer() *normalizer {
	return &normalizer{caser: cases.Lower(language.Und)}
}

func (n *normalizer) normalize(s string) string {
	return n.caser.String(s)
}

// parseLookup lower-cases raw and classifies it. All surrounding delimiters
// are trimmed from substring tokens, so "%%" is the empty substring and
// matches any value.
func (n *normalizer) parseLookup(raw string) lookup {
	s := n.normalize(raw)
	if len(s) >= 2 && strings.HasPrefix(s, substringDelimiter) && strings.HasSuffix(s, substringDelimiter) {
		return lookup{token: strings.Trim(s, substringDelimiter), substring: true}
	}
	return lookup{token: s}
}

// matches tests an already normalized event value.
func (l lookup) matches(value string) bool {
	if l.substring {
		return strings.Contains(value, l.token)
	}
	return value == l.token
}
