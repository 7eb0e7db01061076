package reconciler

import "strings"

// entityAlias maps a well-known litigant to its canonical identity. A
// defendant-name substring match fixes the party fields and supplies default
// process classification for the case.
type entityAlias struct {
	Substring    string
	Name         string
	DocumentID   string
	Email        string
	ProcessType  string
	Jurisdiction string
}

var entityAliases = []entityAlias{
	{
		Substring:    "RAPPI",
		Name:         "Rappi S.A.S.",
		DocumentID:   "NIT 900.843.898-9",
		Email:        "notificacionesjudiciales@rappi.com",
		ProcessType:  "Ordinario Laboral",
		Jurisdiction: "Laboral",
	},
	{
		Substring:    "COLPENSIONES",
		Name:         "Administradora Colombiana de Pensiones - Colpensiones",
		DocumentID:   "NIT 900.336.004-7",
		Email:        "notificacionesjudiciales@colpensiones.gov.co",
		ProcessType:  "Ordinario Laboral",
		Jurisdiction: "Laboral",
	},
	{
		Substring:    "PORVENIR",
		Name:         "Sociedad Administradora de Fondos de Pensiones y Cesantías Porvenir S.A.",
		DocumentID:   "NIT 800.144.331-3",
		Email:        "notificacionesjudiciales@porvenir.com.co",
		ProcessType:  "Ordinario Laboral",
		Jurisdiction: "Laboral",
	},
}

// matchAlias finds the canonical identity for a raw party name, if any.
func matchAlias(name string) (*entityAlias, bool) {
	upper := strings.ToUpper(name)
	for i := range entityAliases {
		if strings.Contains(upper, entityAliases[i].Substring) {
			return &entityAliases[i], true
		}
	}
	return nil, false
}
