package reconciler

import (
	"fmt"
	"sort"
	"strings"
)

// State is a stage in the fixed case lifecycle.
type State string

const (
	StateRadicado             State = "RADICADO"
	StateAdmitido             State = "ADMITIDO"
	StateInadmitido           State = "INADMITIDO"
	StateSubsanado            State = "SUBSANADO"
	StateRechazado            State = "RECHAZADO"
	StateNotificacionPersonal State = "NOTIFICACION_PERSONAL"
	StateNotificacionPorAviso State = "NOTIFICACION_POR_AVISO"
	StateContestacionDemanda  State = "CONTESTACION_DEMANDA"
	StateAudienciaInicial     State = "AUDIENCIA_INICIAL"
	StateAudienciaDeInstancia State = "AUDIENCIA_DE_INSTANCIA"
	StateAlegatos             State = "ALEGATOS"
	StateSentencia            State = "SENTENCIA"
	StateApelacion            State = "APELACION"
	StateEjecutoriado         State = "EJECUTORIADO"
	StateArchivado            State = "ARCHIVADO"
	StateDesistido            State = "DESISTIDO"
)

// initialState is the only state reachable with an empty history.
const initialState = StateRadicado

// terminalStates are reachable from any non-terminal state.
var terminalStates = []State{StateArchivado, StateDesistido}

// transitions maps each target state to the set of predecessor states that
// make it reachable. Built once at init; terminal targets are filled in
// programmatically.
var transitions = map[State]map[State]bool{
	StateAdmitido:             stateSet(StateRadicado, StateSubsanado),
	StateInadmitido:           stateSet(StateRadicado),
	StateSubsanado:            stateSet(StateInadmitido),
	StateRechazado:            stateSet(StateInadmitido),
	StateNotificacionPersonal: stateSet(StateAdmitido),
	StateNotificacionPorAviso: stateSet(StateAdmitido, StateNotificacionPersonal),
	StateContestacionDemanda:  stateSet(StateNotificacionPersonal, StateNotificacionPorAviso),
	StateAudienciaInicial:     stateSet(StateContestacionDemanda, StateNotificacionPorAviso),
	StateAudienciaDeInstancia: stateSet(StateAudienciaInicial),
	StateAlegatos:             stateSet(StateAudienciaInicial, StateAudienciaDeInstancia),
	StateSentencia:            stateSet(StateAlegatos, StateAudienciaDeInstancia),
	StateApelacion:            stateSet(StateSentencia),
	StateEjecutoriado:         stateSet(StateSentencia, StateApelacion),
}

func stateSet(states ...State) map[State]bool {
	set := make(map[State]bool, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

func init() {
	nonTerminal := []State{
		StateRadicado, StateAdmitido, StateInadmitido, StateSubsanado,
		StateRechazado, StateNotificacionPersonal, StateNotificacionPorAviso,
		StateContestacionDemanda, StateAudienciaInicial, StateAudienciaDeInstancia,
		StateAlegatos, StateSentencia, StateApelacion, StateEjecutoriado,
	}
	for _, terminal := range terminalStates {
		transitions[terminal] = stateSet(nonTerminal...)
	}
}

// IsValid reports whether a case whose recorded history is `history` may
// transition to `target`: either the history intersects the target's
// allowed-predecessor set, or the target is the initial state and the
// history is empty.
func IsValid(history []string, target State) bool {
	if target == initialState {
		return len(history) == 0
	}
	allowed, known := transitions[target]
	if !known {
		return false
	}
	for _, s := range history {
		if allowed[State(s)] {
			return true
		}
	}
	return false
}

// NextValidStates returns every state reachable given the recorded history,
// sorted for stable output.
func NextValidStates(history []string) []State {
	var next []State
	if IsValid(history, initialState) {
		next = append(next, initialState)
	}
	for target := range transitions {
		if IsValid(history, target) {
			next = append(next, target)
		}
	}
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	return next
}

// TransitionError rejects an illegal lifecycle transition and enumerates the
// valid alternatives.
type TransitionError struct {
	Target    State
	ValidNext []State
}

func (e *TransitionError) Error() string {
	names := make([]string, len(e.ValidNext))
	for i, s := range e.ValidNext {
		names[i] = string(s)
	}
	return fmt.Sprintf("invalid transition to %s; valid states: %s",
		e.Target, strings.Join(names, ", "))
}

// Validate returns nil when the transition is legal and a *TransitionError
// listing the legal alternatives otherwise.
func Validate(history []string, target State) error {
	if IsValid(history, target) {
		return nil
	}
	return &TransitionError{Target: target, ValidNext: NextValidStates(history)}
}
