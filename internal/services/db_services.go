package services

import (
	"codepair/internal/repositories"

	"gorm.io/gorm"
)

// DbServices bundles the services that persist through the history
// database, so the app wires them up in one step.
type DbServices struct {
	Settings      SettingsService
	Models        ModelConfigService
	Workspaces    WorkspaceService
	Conversations ConversationService
}

// NewDbServices builds every repository against db and the services on top
// of them.
func NewDbServices(db *gorm.DB) *DbServices {
	settingsRepo := repositories.NewAppSettingsRepository(db)
	modelSettingRepo := repositories.NewModelSettingRepository(db)
	workspaceRepo := repositories.NewWorkspaceRepository(db)
	conversationRepo := repositories.NewConversationRepository(db)
	transcriptRepo := repositories.NewTranscriptRepository(db)
	appliedEditRepo := repositories.NewAppliedEditRepository(db)

	return &DbServices{
		Settings:      NewSettingsService(settingsRepo),
		Models:        NewModelConfigService(modelSettingRepo),
		Workspaces:    NewWorkspaceService(workspaceRepo),
		Conversations: NewConversationService(conversationRepo, transcriptRepo, appliedEditRepo),
	}
}
