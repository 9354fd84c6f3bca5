package seed

import (
	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	. "github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func stringPtr(s string) *string {
	return &s
}

// Seed loads a small development catalog so the dashboard has data before
// the first playlist sync runs.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data", "environment", config.Environment)

	tracks := []Track{
		{Title: "Antipyretic", Duration: FormatDuration(204), Creator: stringPtr("FFTBattleground")},
		{Title: "Apoplexy", Duration: FormatDuration(187)},
		{Title: "Character Select", Duration: FormatDuration(96)},
		{Title: "Decisive Battle", Duration: FormatDuration(241), Occurrence: 4},
		{Title: "Zodiac Brave Story", Duration: FormatDuration(3725), Occurrence: 1},
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tracks)
	if result.Error != nil {
		return log.Err("failed to seed tracks", result.Error)
	}

	log.Info("Seeded tracks", "inserted", result.RowsAffected)
	return nil
}
