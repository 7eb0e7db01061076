package database

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PendingVerification is the sentinel stored in party contact fields until a
// real value arrives from a later sync or manual edit.
const PendingVerification = "Pendiente verificación"

// Party roles
const (
	RolePlaintiff = "demandante"
	RoleDefendant = "demandado"
)

// SyncRun statuses
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// SyncRun trigger sources
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerHistory   = "history"
	TriggerImport    = "import"
)

// Case is a judicial process tracked locally. It is created the first time an
// external change record arrives with an unknown docket number and updated on
// every sync after that; rows are never hard-deleted.
type Case struct {
	gorm.Model
	InternalCode string `json:"internal_code" gorm:"uniqueIndex;size:20"`
	Docket       string `json:"docket" gorm:"uniqueIndex;size:30"`
	Jurisdiction string `json:"jurisdiction"`
	OfficeName   string `json:"office_name"`
	City         string `json:"city"`
	Department   string `json:"department"`
	ProcessType  string `json:"process_type"`
	State        string `json:"state"`
	StateHistory string `json:"state_history" gorm:"type:text"`

	// Sync bookkeeping, always overwritten on sync
	Synced               bool      `json:"synced"`
	LastSyncAt           time.Time `json:"last_sync_at"`
	ProviderProcessID    string    `json:"provider_process_id"`
	ProviderConnectionID string    `json:"provider_connection_id"`

	Parties []ProceduralParty `json:"parties" gorm:"foreignKey:CaseID"`
	Events  []CaseEvent       `json:"events" gorm:"foreignKey:CaseID"`
}

// History decodes the recorded lifecycle states, oldest first.
func (c *Case) History() []string {
	if c.StateHistory == "" {
		return nil
	}
	var states []string
	if err := json.Unmarshal([]byte(c.StateHistory), &states); err != nil {
		return nil
	}
	return states
}

// RecordState appends a state to the history and sets it current.
func (c *Case) RecordState(state string) {
	states := append(c.History(), state)
	raw, _ := json.Marshal(states)
	c.StateHistory = string(raw)
	c.State = state
}

// ProceduralParty is one plaintiff or defendant on a case. One row exists per
// (case, role, name); contact fields hold PendingVerification until verified.
type ProceduralParty struct {
	gorm.Model
	CaseID     uint   `json:"case_id" gorm:"index:idx_parties_case_role"`
	Role       string `json:"role" gorm:"index:idx_parties_case_role"`
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// CaseEvent is an append-only procedural action on a case. At most one row
// exists per (case, exact event-type text).
type CaseEvent struct {
	gorm.Model
	CaseID     uint      `json:"case_id" gorm:"index:idx_events_case_type"`
	EventType  string    `json:"event_type" gorm:"index:idx_events_case_type"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HearingDraft is a minimal hearing stub created when a sync annotation
// denotes a hearing; the scheduling UI owns it from there.
type HearingDraft struct {
	gorm.Model
	CaseID     uint   `json:"case_id" gorm:"index"`
	Annotation string `json:"annotation" gorm:"type:text"`
	Status     string `json:"status"`
}

// SyncRun is the audit record of one reconciliation execution.
type SyncRun struct {
	gorm.Model
	CorrelationID      string    `json:"correlation_id" gorm:"size:36;index"`
	TriggerSource      string    `json:"trigger_source" gorm:"index"`
	StartedAt          time.Time `json:"started_at" gorm:"index"`
	FinishedAt         time.Time `json:"finished_at"`
	Status             string    `json:"status"`
	CreatedCount       int       `json:"created_count"`
	UpdatedCount       int       `json:"updated_count"`
	SkippedCount       int       `json:"skipped_count"`
	ErroredCount       int       `json:"errored_count"`
	Total              int       `json:"total"`
	ProviderHadChanges bool      `json:"provider_had_changes"`
	ErrorSample        string    `json:"error_sample" gorm:"type:text"`
	ErrorMessage       string    `json:"error_message"`
}

func (Case) TableName() string {
	return "cases"
}

func (ProceduralParty) TableName() string {
	return "procedural_parties"
}

func (CaseEvent) TableName() string {
	return "case_events"
}

func (HearingDraft) TableName() string {
	return "hearing_drafts"
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
