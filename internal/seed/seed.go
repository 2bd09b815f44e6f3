package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	scoringdomain "github.com/santemut/vigie/internal/scoring/domain"
	"github.com/santemut/vigie/internal/scoring/rules"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultRules is the scoring configuration shipped out of the box. An
// administrator can retune weights or deactivate rules at runtime.
var defaultRules = []struct {
	Name      string
	Criterion string
	Weight    float64
}{
	{"Ponctualité des paiements", rules.CriterionPaymentPunctuality, 0.30},
	{"Historique des retards", rules.CriterionArrearsTrend, 0.20},
	{"Niveau d'endettement", rules.CriterionDebtLevel, 0.20},
	{"Ancienneté du membre", rules.CriterionMembershipTenure, 0.15},
	{"Fréquence des vérifications", rules.CriterionVerificationFrequency, 0.15},
}

// EnsureDefaultRules seeds the built-in scoring rules when the table is
// empty. Existing configurations are never touched.
func EnsureDefaultRules(ctx context.Context, db *gorm.DB, genID *snowflake.Node) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&scoringdomain.ScoringRule{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	seeded := 0
	for _, def := range defaultRules {
		rule := scoringdomain.ScoringRule{
			ID:        genID.Generate(),
			Name:      def.Name,
			Criterion: def.Criterion,
			Weight:    def.Weight,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := db.WithContext(ctx).Create(&rule).Error; err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

var Module = fx.Module("seed",
	fx.Invoke(run),
)

func run(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	seeded, err := EnsureDefaultRules(context.Background(), db, genID)
	if err != nil {
		return err
	}
	if seeded > 0 {
		log.Info("default scoring rules seeded", zap.Int("count", seeded))
	}
	return nil
}
