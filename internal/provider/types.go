package provider

// Wire types for the judicial-process tracking provider. Field names follow
// the provider's Spanish JSON contract and are fixed externally.

type loginRequest struct {
	Email string `json:"email"`
	Pwd   string `json:"pwd"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChangeSummary reports whether a day has pending changes and the provider's
// aggregate counters for it.
type ChangeSummary struct {
	HasChanges bool           `json:"tieneCambios"`
	Stats      map[string]int `json:"estadisticas"`
}

// ChangeRecord is one changed judicial process in the provider's daily feed.
type ChangeRecord struct {
	Docket       string `json:"numero"`
	Office       string `json:"despacho"`
	City         string `json:"ciudad"`
	Plaintiffs   string `json:"demandantes"`
	Defendants   string `json:"demandados"`
	LastAction   string `json:"ultimaActuacion"`
	ActionDate   string `json:"fechaUltimaActuacion"`
	Annotation   string `json:"anotacion"`
	ProcessType  string `json:"tipoProceso"`
	Jurisdiction string `json:"jurisdiccion"`
	ProcessID    string `json:"idProceso"`
	ConnectionID string `json:"idConexion"`
}
