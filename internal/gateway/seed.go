package gateway

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// trainingCatalog is the built-in module catalog, inserted on first start.
var trainingCatalog = []TrainingModule{
	{Title: "Proper Handwashing", Category: "hygiene", Duration: "10 min", Lessons: 4},
	{Title: "Safe Water Storage", Category: "hygiene", Duration: "15 min", Lessons: 5},
	{Title: "Food Safety Basics", Category: "hygiene", Duration: "20 min", Lessons: 6},
	{Title: "Personal Hygiene", Category: "hygiene", Duration: "12 min", Lessons: 4},
	{Title: "Disease Prevention", Category: "prevention", Duration: "25 min", Lessons: 3},
	{Title: "Cholera Prevention", Category: "prevention", Duration: "18 min", Lessons: 4},
	{Title: "Typhoid Prevention", Category: "prevention", Duration: "18 min", Lessons: 4},
	{Title: "Hepatitis A Prevention", Category: "prevention", Duration: "15 min", Lessons: 3},
	{Title: "Handwashing Steps Poster", Category: "resources", Duration: "2 min", Lessons: 1},
	{Title: "Water Safety Infographic", Category: "resources", Duration: "2 min", Lessons: 1},
}

// seedTrainingCatalog inserts the catalog when the table is empty. Reruns
// are no-ops so restarts do not duplicate modules.
func seedTrainingCatalog(db *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := db.Model(&TrainingModule{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count training modules: %w", err)
	}
	if count > 0 {
		return nil
	}

	modules := make([]TrainingModule, len(trainingCatalog))
	copy(modules, trainingCatalog)
	for i := range modules {
		modules[i].ID = uuid.NewString()
	}

	if err := db.Create(&modules).Error; err != nil {
		return fmt.Errorf("failed to seed training modules: %w", err)
	}

	logger.Info("seeded training catalog", "modules", len(modules))
	return nil
}
