package migration

import (
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	"github.com/santemut/vigie/internal/events"
	scoringdomain "github.com/santemut/vigie/internal/scoring/domain"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
	"gorm.io/gorm"
)

// Migrate creates or updates the governance tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&directorydomain.Member{},
		&directorydomain.Agent{},
		&cotisationdomain.Verification{},
		&scoringdomain.ScoringRule{},
		&scoringdomain.ScoreRecord{},
		&voucherdomain.Voucher{},
		&voucherdomain.AgentDailyQuota{},
		&events.GovernanceEvent{},
	)
}
