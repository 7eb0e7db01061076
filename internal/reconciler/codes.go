package reconciler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
)

// nextInternalCode allocates the next `<PREFIX>-<year>-<seq>` code from the
// per-year running counter. The read happens inside the caller's create path;
// a lost race surfaces as a unique-constraint error on the case, so gaps are
// possible but collisions are not.
func nextInternalCode(tx *gorm.DB, prefix string, year int) (string, error) {
	var last database.Case
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)

	err := tx.Unscoped().
		Where("internal_code LIKE ?", pattern).
		Order("internal_code DESC").
		First(&last).Error

	seq := 1
	switch {
	case err == nil:
		parts := strings.Split(last.InternalCode, "-")
		n, convErr := strconv.Atoi(parts[len(parts)-1])
		if convErr != nil {
			return "", fmt.Errorf("malformed internal code %q: %w", last.InternalCode, convErr)
		}
		seq = n + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First case of the year
	default:
		return "", fmt.Errorf("failed to read internal code counter: %w", err)
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq), nil
}
