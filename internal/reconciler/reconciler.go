package reconciler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// Outcome classifies what one change record did to the local catalog.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// Result is the per-record reconciliation outcome.
type Result struct {
	Outcome Outcome
	Docket  string
	Message string
}

// HearingService is the hearing-scheduling collaborator. Calls are
// fire-and-forget; failures are logged, never propagated.
type HearingService interface {
	CreateFromEvent(caseID uint, annotation string) error
}

// placeholder docket values the provider uses when a process has no number yet
var placeholderDockets = map[string]bool{
	"":           true,
	"0":          true,
	"N/A":        true,
	"SIN NUMERO": true,
	"PENDIENTE":  true,
}

// IsPlaceholderDocket reports whether a docket value is one of the provider's
// stand-ins for a process that has no number yet.
func IsPlaceholderDocket(docket string) bool {
	return placeholderDockets[strings.ToUpper(strings.TrimSpace(docket))]
}

// action texts that carry no event worth recording
var placeholderActions = map[string]bool{
	"":                      true,
	"N/A":                   true,
	"NO REGISTRA":           true,
	"SIN ACTUACIONES":       true,
	"SIN TIPO DE ACTUACION": true,
}

// hearingKeywords in the action or annotation text delegate a hearing draft
// to the collaborator.
var hearingKeywords = []string{"AUDIENCIA", "FIJA FECHA", "DILIGENCIA"}

// Engine reconciles external change records against the local case catalog.
type Engine struct {
	db         *gorm.DB
	logger     *logger.Logger
	hearings   HearingService
	codePrefix string

	// Serializes code allocation + create: batched mode reconciles records
	// concurrently, and the per-year counter read is not atomic with the
	// insert. Gaps are acceptable, collisions are not.
	codeMu sync.Mutex
}

func NewEngine(db *gorm.DB, log *logger.Logger, hearings HearingService, codePrefix string) *Engine {
	return &Engine{
		db:         db,
		logger:     log,
		hearings:   hearings,
		codePrefix: codePrefix,
	}
}

// Reconcile applies one change record: resolve-or-create by docket,
// fill-if-empty merge, party upsert, event append, hearing delegation.
// Failures are captured in the result and never abort the surrounding batch.
func (e *Engine) Reconcile(rec *provider.ChangeRecord) (result Result) {
	docket := strings.TrimSpace(rec.Docket)
	result = Result{Docket: docket}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeError
			result.Message = fmt.Sprintf("panic: %v", r)
			e.logger.Error("Reconciliation panicked", "docket", docket, "panic", r)
		}
	}()

	if IsPlaceholderDocket(docket) {
		result.Outcome = OutcomeSkipped
		return result
	}

	derived := deriveFields(rec)
	e.logger.Debug("Derived office name",
		"docket", docket,
		"office", derived.Office,
		"tier", derived.OfficeTier.String(),
	)

	kase, created, err := e.resolveOrCreate(docket, rec, &derived)
	if err != nil {
		result.Outcome = OutcomeError
		result.Message = err.Error()
		return result
	}

	if !created {
		changed := applyMerge(kase, &derived)
		applyBookkeeping(kase, rec)
		if err := e.db.Save(kase).Error; err != nil {
			result.Outcome = OutcomeError
			result.Message = fmt.Sprintf("failed to update case: %v", err)
			return result
		}
		if len(changed) > 0 {
			e.logger.Debug("Filled case fields", "docket", docket, "fields", changed)
		}
	}

	if err := e.upsertParties(kase.ID, database.RolePlaintiff, rec.Plaintiffs); err != nil {
		result.Outcome = OutcomeError
		result.Message = err.Error()
		return result
	}
	if err := e.upsertParties(kase.ID, database.RoleDefendant, rec.Defendants); err != nil {
		result.Outcome = OutcomeError
		result.Message = err.Error()
		return result
	}

	if err := e.appendEvent(kase.ID, rec, &derived); err != nil {
		result.Outcome = OutcomeError
		result.Message = err.Error()
		return result
	}

	e.delegateHearing(kase.ID, rec)

	if created {
		result.Outcome = OutcomeCreated
	} else {
		result.Outcome = OutcomeUpdated
	}
	return result
}

// resolveOrCreate looks the case up by docket, creating it with the next
// internal code when unknown. A lost creation race surfaces as the unique
// docket constraint, classified upstream as a per-record error.
func (e *Engine) resolveOrCreate(docket string, rec *provider.ChangeRecord, derived *derivedFields) (*database.Case, bool, error) {
	var kase database.Case
	err := e.db.Where("docket = ?", docket).First(&kase).Error
	if err == nil {
		return &kase, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to resolve docket: %w", err)
	}

	e.codeMu.Lock()
	defer e.codeMu.Unlock()

	code, err := nextInternalCode(e.db, e.codePrefix, time.Now().Year())
	if err != nil {
		return nil, false, err
	}

	kase = database.Case{
		InternalCode: code,
		Docket:       docket,
		Jurisdiction: derived.Jurisdiction,
		OfficeName:   derived.Office,
		City:         derived.City,
		Department:   derived.Department,
		ProcessType:  derived.ProcessType,
	}
	kase.RecordState(string(initialState))
	applyBookkeeping(&kase, rec)

	if err := e.db.Create(&kase).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create case: %w", err)
	}
	return &kase, true, nil
}

// applyBookkeeping overwrites the sync bookkeeping fields unconditionally,
// unlike the fill-if-empty merge. It runs on both the create and update paths.
func applyBookkeeping(kase *database.Case, rec *provider.ChangeRecord) {
	kase.Synced = true
	kase.LastSyncAt = time.Now()
	kase.ProviderProcessID = rec.ProcessID
	kase.ProviderConnectionID = rec.ConnectionID
}

// appendEvent records the external last action once per distinct event-type
// text per case.
func (e *Engine) appendEvent(caseID uint, rec *provider.ChangeRecord, derived *derivedFields) error {
	action := strings.TrimSpace(rec.LastAction)
	if placeholderActions[strings.ToUpper(action)] {
		return nil
	}

	var count int64
	if err := e.db.Model(&database.CaseEvent{}).
		Where("case_id = ? AND event_type = ?", caseID, action).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up event: %w", err)
	}
	if count > 0 {
		return nil
	}

	event := database.CaseEvent{
		CaseID:     caseID,
		EventType:  action,
		Actor:      derived.Office,
		Note:       rec.Annotation,
		OccurredAt: parseActionDate(rec.ActionDate),
	}
	if err := e.db.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// delegateHearing hands hearing-looking annotations to the collaborator.
// Fire-and-forget: a failing collaborator never fails the record.
func (e *Engine) delegateHearing(caseID uint, rec *provider.ChangeRecord) {
	if e.hearings == nil {
		return
	}

	text := strings.ToUpper(rec.LastAction + " " + rec.Annotation)
	matched := false
	for _, kw := range hearingKeywords {
		if strings.Contains(text, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return
	}

	annotation := rec.Annotation
	if annotation == "" {
		annotation = rec.LastAction
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Hearing collaborator panicked", "case_id", caseID, "panic", r)
			}
		}()
		if err := e.hearings.CreateFromEvent(caseID, annotation); err != nil {
			e.logger.Error("Failed to create hearing draft", "case_id", caseID, "error", err)
		}
	}()
}

// AdvanceState validates and records a lifecycle transition requested for a
// case, identified by docket.
func (e *Engine) AdvanceState(docket string, target State) error {
	var kase database.Case
	if err := e.db.Where("docket = ?", docket).First(&kase).Error; err != nil {
		return fmt.Errorf("failed to resolve docket %q: %w", docket, err)
	}

	if err := Validate(kase.History(), target); err != nil {
		return err
	}

	kase.RecordState(string(target))
	if err := e.db.Save(&kase).Error; err != nil {
		return fmt.Errorf("failed to record state: %w", err)
	}
	return nil
}

// NextStatesFor returns the legal next states for a case.
func (e *Engine) NextStatesFor(docket string) ([]State, error) {
	var kase database.Case
	if err := e.db.Where("docket = ?", docket).First(&kase).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve docket %q: %w", docket, err)
	}
	return NextValidStates(kase.History()), nil
}

var actionDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parseActionDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range actionDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}
