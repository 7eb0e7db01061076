package hearing

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// Service persists hearing drafts raised by sync annotations. The scheduling
// UI picks drafts up from here; this package deliberately knows nothing about
// calendars or notification delivery.
type Service struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// CreateFromEvent records a hearing draft for a case from the sync
// annotation text.
func (s *Service) CreateFromEvent(caseID uint, annotation string) error {
	draft := database.HearingDraft{
		CaseID:     caseID,
		Annotation: annotation,
		Status:     "draft",
	}
	if err := s.db.Create(&draft).Error; err != nil {
		return fmt.Errorf("failed to create hearing draft: %w", err)
	}

	s.logger.Info("Hearing draft created", "case_id", caseID, "draft_id", draft.ID)
	return nil
}
