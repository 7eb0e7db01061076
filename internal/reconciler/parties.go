package reconciler

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
)

// upsertParties splits a comma-separated name list and keeps one row per
// (case, role, name). Existing rows only have their still-pending fields
// filled; a name matching a known alias collapses to its canonical identity.
func (e *Engine) upsertParties(caseID uint, role, nameList string) error {
	for _, raw := range strings.Split(nameList, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		incoming := database.ProceduralParty{
			CaseID:     caseID,
			Role:       role,
			Name:       name,
			DocumentID: database.PendingVerification,
			Email:      database.PendingVerification,
			Phone:      database.PendingVerification,
			Address:    database.PendingVerification,
		}
		if alias, ok := matchAlias(name); ok {
			incoming.Name = alias.Name
			incoming.DocumentID = alias.DocumentID
			incoming.Email = alias.Email
		}

		var existing database.ProceduralParty
		err := e.db.
			Where("case_id = ? AND role = ? AND name = ?", caseID, role, incoming.Name).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := e.db.Create(&incoming).Error; err != nil {
				return fmt.Errorf("failed to create %s %q: %w", role, incoming.Name, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up %s %q: %w", role, incoming.Name, err)
		default:
			if updates := pendingUpdates(&existing, &incoming); len(updates) > 0 {
				if err := e.db.Model(&existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update %s %q: %w", role, incoming.Name, err)
				}
			}
		}
	}
	return nil
}

// pendingUpdates collects the fields still holding the pending-verification
// sentinel for which the incoming party carries a real value.
func pendingUpdates(existing, incoming *database.ProceduralParty) map[string]interface{} {
	updates := map[string]interface{}{}

	fields := []struct {
		column   string
		current  string
		incoming string
	}{
		{"document_id", existing.DocumentID, incoming.DocumentID},
		{"email", existing.Email, incoming.Email},
		{"phone", existing.Phone, incoming.Phone},
		{"address", existing.Address, incoming.Address},
	}
	for _, f := range fields {
		if f.current == database.PendingVerification &&
			f.incoming != "" && f.incoming != database.PendingVerification {
			updates[f.column] = f.incoming
		}
	}
	return updates
}
