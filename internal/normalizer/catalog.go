package normalizer

import (
	"fmt"
	"strings"
)

// Category identifies a court-office class with a fixed canonical template.
type Category int

const (
	CivilCircuit Category = iota
	CivilMunicipal
	LaborCircuit
	PenalCircuit
	PenalMunicipal
	Family
	Administrative
	SmallClaims
)

// canonical templates, number always zero-padded to two digits
var templates = map[Category]string{
	CivilCircuit:   "Juzgado %02d Civil del Circuito de %s",
	CivilMunicipal: "Juzgado %02d Civil Municipal de %s",
	LaborCircuit:   "Juzgado %02d Laboral del Circuito de %s",
	PenalCircuit:   "Juzgado %02d Penal del Circuito de %s",
	PenalMunicipal: "Juzgado %02d Penal Municipal de %s",
	Family:         "Juzgado %02d de Familia de %s",
	Administrative: "Juzgado %02d Administrativo de %s",
	SmallClaims:    "Juzgado %02d de Pequeñas Causas y Competencia Múltiple de %s",
}

// knownCities maps the canonical city display name to its department.
var knownCities = map[string]string{
	"Bogotá D.C.":  "Cundinamarca",
	"Medellín":     "Antioquia",
	"Cali":         "Valle del Cauca",
	"Barranquilla": "Atlántico",
	"Cartagena":    "Bolívar",
	"Bucaramanga":  "Santander",
	"Pereira":      "Risaralda",
	"Manizales":    "Caldas",
	"Ibagué":       "Tolima",
	"Cúcuta":       "Norte de Santander",
	"Villavicencio": "Meta",
	"Neiva":        "Huila",
}

// officeCounts holds how many offices of each category exist per city. The
// valid-name set is generated from these counts at init; a synthesized name
// outside the set is treated as unknown rather than invented.
var officeCounts = map[string]map[Category]int{
	"Bogotá D.C.": {
		CivilCircuit:   57,
		CivilMunicipal: 85,
		LaborCircuit:   41,
		PenalCircuit:   55,
		PenalMunicipal: 70,
		Family:         30,
		Administrative: 67,
		SmallClaims:    12,
	},
	"Medellín": {
		CivilCircuit:   21,
		CivilMunicipal: 35,
		LaborCircuit:   23,
		PenalCircuit:   30,
		PenalMunicipal: 40,
		Family:         15,
		Administrative: 29,
		SmallClaims:    6,
	},
	"Cali": {
		CivilCircuit:   17,
		CivilMunicipal: 28,
		LaborCircuit:   17,
		PenalCircuit:   25,
		PenalMunicipal: 32,
		Family:         12,
		Administrative: 18,
		SmallClaims:    4,
	},
	"Barranquilla": {
		CivilCircuit:   14,
		CivilMunicipal: 20,
		LaborCircuit:   13,
		PenalCircuit:   16,
		PenalMunicipal: 20,
		Family:         10,
		Administrative: 13,
		SmallClaims:    3,
	},
	"Cartagena": {
		CivilCircuit:   10,
		CivilMunicipal: 14,
		LaborCircuit:   9,
		PenalCircuit:   12,
		PenalMunicipal: 14,
		Family:         7,
		Administrative: 13,
		SmallClaims:    2,
	},
	"Bucaramanga": {
		CivilCircuit:   11,
		CivilMunicipal: 15,
		LaborCircuit:   9,
		PenalCircuit:   12,
		PenalMunicipal: 14,
		Family:         8,
		Administrative: 15,
		SmallClaims:    2,
	},
	"Pereira": {
		CivilCircuit:   7,
		CivilMunicipal: 9,
		LaborCircuit:   5,
		PenalCircuit:   8,
		PenalMunicipal: 9,
		Family:         5,
		Administrative: 9,
		SmallClaims:    1,
	},
	"Manizales": {
		CivilCircuit:   6,
		CivilMunicipal: 8,
		LaborCircuit:   4,
		PenalCircuit:   7,
		PenalMunicipal: 8,
		Family:         4,
		Administrative: 8,
		SmallClaims:    1,
	},
	"Ibagué": {
		CivilCircuit:   6,
		CivilMunicipal: 9,
		LaborCircuit:   5,
		PenalCircuit:   7,
		PenalMunicipal: 9,
		Family:         4,
		Administrative: 10,
		SmallClaims:    1,
	},
	"Cúcuta": {
		CivilCircuit:   7,
		CivilMunicipal: 10,
		LaborCircuit:   5,
		PenalCircuit:   9,
		PenalMunicipal: 11,
		Family:         5,
		Administrative: 9,
		SmallClaims:    1,
	},
	"Villavicencio": {
		CivilCircuit:   6,
		CivilMunicipal: 8,
		LaborCircuit:   4,
		PenalCircuit:   7,
		PenalMunicipal: 8,
		Family:         4,
		Administrative: 8,
		SmallClaims:    1,
	},
	"Neiva": {
		CivilCircuit:   5,
		CivilMunicipal: 7,
		LaborCircuit:   3,
		PenalCircuit:   6,
		PenalMunicipal: 7,
		Family:         3,
		Administrative: 7,
		SmallClaims:    1,
	},
}

// validNames maps the folded uppercase form of every known office name to its
// canonical display form. Built once at package init.
var validNames = map[string]string{}

// validEntry keeps the parts of a valid name for nearest-match scoring.
type validEntry struct {
	display string
	folded  string
	number  int
	city    string
}

var validEntries []validEntry

var accentFolder = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
	"á", "A", "é", "E", "í", "I", "ó", "O", "ú", "U", "ü", "U", "ñ", "N",
)

// fold uppercases and strips accents so lookups survive the provider's
// inconsistent spelling.
func fold(s string) string {
	return accentFolder.Replace(strings.ToUpper(s))
}

func init() {
	for city, counts := range officeCounts {
		for category, count := range counts {
			for n := 1; n <= count; n++ {
				display := fmt.Sprintf(templates[category], n, city)
				folded := fold(display)
				validNames[folded] = display
				// Unpadded variant resolves to the same canonical form
				if n < 10 {
					unpadded := strings.Replace(folded, fmt.Sprintf(" %02d ", n), fmt.Sprintf(" %d ", n), 1)
					validNames[unpadded] = display
				}
				validEntries = append(validEntries, validEntry{
					display: display,
					folded:  folded,
					number:  n,
					city:    fold(city),
				})
			}
		}
	}
}

// DepartmentFor returns the department of a known city, or "" if the city is
// not in the catalog.
func DepartmentFor(city string) string {
	if dept, ok := knownCities[city]; ok {
		return dept
	}
	folded := fold(city)
	for name, dept := range knownCities {
		if fold(name) == folded {
			return dept
		}
	}
	return ""
}

// resolveCity maps a free-text fragment onto a known city display name.
func resolveCity(fragment string) (string, bool) {
	folded := strings.TrimSpace(fold(fragment))
	if len(folded) < 4 {
		return "", false
	}
	for city := range knownCities {
		fc := fold(city)
		if folded == fc || strings.Contains(fc, folded) || strings.Contains(folded, fc) {
			return city, true
		}
		// "BOGOTA" should match "BOGOTA D.C."
		if base := strings.TrimSuffix(fc, " D.C."); base != fc && (folded == base || strings.Contains(folded, base)) {
			return city, true
		}
	}
	return "", false
}
