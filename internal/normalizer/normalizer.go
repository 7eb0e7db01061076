package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tier reports how a name was normalized. It exists for observability only;
// callers always get a usable name back.
type Tier int

const (
	// TierExact means the input was already the canonical form.
	TierExact Tier = iota
	// TierSynthesized means a recognized phrasing was rebuilt from the template.
	TierSynthesized
	// TierNearest means the valid set was searched for the closest known name.
	TierNearest
	// TierPassthrough means the input was returned unchanged.
	TierPassthrough
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSynthesized:
		return "synthesized"
	case TierNearest:
		return "nearest"
	default:
		return "passthrough"
	}
}

// extractor recognizes one phrasing of an office name and pulls out the
// office number and the trailing city fragment.
type extractor struct {
	re       *regexp.Regexp
	category Category
}

// Ordered: more specific phrasings first so "CIVIL MUNICIPAL" is not read as
// a circuit office. Inputs are folded (uppercase, accent-stripped) before
// matching.
var extractors = []extractor{
	// type-then-number and number-then-type, per category
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+CIVIL\s+MUNICIPAL(?:\s+DE)?\s*(.*)$`), CivilMunicipal},
	{regexp.MustCompile(`JUZGADO\s+CIVIL\s+MUNICIPAL\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), CivilMunicipal},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+CIVIL\s+(?:DEL\s+)?CIRCUITO(?:\s+DE)?\s*(.*)$`), CivilCircuit},
	{regexp.MustCompile(`JUZGADO\s+CIVIL\s+(?:DEL\s+)?CIRCUITO\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), CivilCircuit},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+PENAL\s+MUNICIPAL(?:\s+DE)?\s*(.*)$`), PenalMunicipal},
	{regexp.MustCompile(`JUZGADO\s+PENAL\s+MUNICIPAL\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), PenalMunicipal},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+PENAL\s+(?:DEL\s+)?CIRCUITO(?:\s+DE)?\s*(.*)$`), PenalCircuit},
	{regexp.MustCompile(`JUZGADO\s+PENAL\s+(?:DEL\s+)?CIRCUITO\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), PenalCircuit},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+LABORAL(?:\s+DEL)?(?:\s+CIRCUITO)?(?:\s+DE)?\s*(.*)$`), LaborCircuit},
	{regexp.MustCompile(`JUZGADO\s+LABORAL\s+(?:DEL\s+)?(?:CIRCUITO\s+)?(\d{1,3})(?:\s+DE)?\s*(.*)$`), LaborCircuit},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+(?:PROMISCUO\s+)?DE\s+FAMILIA(?:\s+DE)?\s*(.*)$`), Family},
	{regexp.MustCompile(`JUZGADO\s+(?:PROMISCUO\s+)?DE\s+FAMILIA\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), Family},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+ADMINISTRATIVO(?:\s+DEL?\s+CIRCUITO)?(?:\s+DE)?\s*(.*)$`), Administrative},
	{regexp.MustCompile(`JUZGADO\s+ADMINISTRATIVO\s+(?:DEL?\s+CIRCUITO\s+)?(\d{1,3})(?:\s+DE)?\s*(.*)$`), Administrative},
	{regexp.MustCompile(`JUZGADO\s+(\d{1,3})\s+DE\s+PEQUENAS\s+CAUSAS(?:\s+Y\s+COMPETENCIA\s+MULTIPLE)?(?:\s+DE)?\s*(.*)$`), SmallClaims},
	{regexp.MustCompile(`JUZGADO\s+DE\s+PEQUENAS\s+CAUSAS(?:\s+Y\s+COMPETENCIA\s+MULTIPLE)?\s+(\d{1,3})(?:\s+DE)?\s*(.*)$`), SmallClaims},
}

var anyNumber = regexp.MustCompile(`\b(\d{1,3})\b`)

// Normalize maps a raw office string to its canonical form. It never fails:
// when the input cannot be recognized nor matched against the known office
// set it is returned unchanged. cityHint may be empty.
func Normalize(raw, cityHint string) (string, Tier) {
	folded := collapse(fold(raw))
	if folded == "" {
		return raw, TierPassthrough
	}

	num, category, cityFrag, extracted := extract(folded)

	// City precedence: extracted fragment, then hint, then substring scan
	city := ""
	if extracted {
		if c, ok := resolveCity(cityFrag); ok {
			city = c
		}
	}
	if city == "" && cityHint != "" {
		if c, ok := resolveCity(cityHint); ok {
			city = c
		}
	}
	if city == "" {
		if c, ok := resolveCity(folded); ok {
			city = c
		}
	}

	if extracted && city != "" {
		synth := fmt.Sprintf(templates[category], num, city)
		if display, ok := validNames[fold(synth)]; ok {
			// Exact means byte-identical to the display form (modulo
			// whitespace); input that merely folds to it was still rewritten.
			if collapse(raw) == display {
				return display, TierExact
			}
			return display, TierSynthesized
		}
	}

	// Extraction or synthesis missed: search the valid set for the nearest
	// known name sharing the office number and city.
	if !extracted {
		if m := anyNumber.FindStringSubmatch(folded); m != nil {
			num, _ = strconv.Atoi(m[1])
		}
	}
	if display, ok := nearestMatch(folded, num, city); ok {
		return display, TierNearest
	}

	// Over-normalizing would corrupt rare-but-correct values, so unknown
	// names pass through untouched.
	return raw, TierPassthrough
}

// CityOf resolves a free-text city reference against the known city catalog.
func CityOf(fragment string) string {
	if city, ok := resolveCity(fragment); ok {
		return city
	}
	return ""
}

func extract(folded string) (int, Category, string, bool) {
	for _, ex := range extractors {
		m := ex.re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil || num == 0 {
			continue
		}
		return num, ex.category, cleanFragment(m[2]), true
	}
	return 0, 0, "", false
}

// nearestMatch scores valid names by word overlap with the input, restricted
// to entries whose number (and city, when known) co-occur with the input.
func nearestMatch(folded string, num int, city string) (string, bool) {
	if num == 0 {
		return "", false
	}
	foldedCity := ""
	if city != "" {
		foldedCity = fold(city)
	}

	best := ""
	bestScore := 0
	for _, e := range validEntries {
		if e.number != num {
			continue
		}
		if foldedCity != "" && e.city != foldedCity {
			continue
		}
		score := 0
		for _, word := range strings.Fields(e.folded) {
			if len(word) > 3 && strings.Contains(folded, word) {
				score++
			}
		}
		if score < 2 {
			continue
		}
		// Lexicographic tie-break keeps the result deterministic
		if score > bestScore || (score == bestScore && e.display < best) {
			best = e.display
			bestScore = score
		}
	}
	return best, best != ""
}

func cleanFragment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "DEL ")
	s = strings.TrimPrefix(s, "DE ")
	return strings.Trim(s, " ,-")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
