package registry

import "github.com/dukex/flowedit/pkg/models"

// Default is the catalog used when no catalog file is configured.
func Default() *models.NodeTypeCatalog {
	return &models.NodeTypeCatalog{
		Categories: map[models.CategoryType][]models.NodeTypeDescriptor{
			models.CategoryTypeTrigger: {
				{ID: "trigger-http", Name: "Webhook", Description: "Start on an incoming HTTP request", DefaultConfig: map[string]any{"method": "POST", "path": "/"}},
				{ID: "trigger-schedule", Name: "Schedule", Description: "Start on a cron schedule", DefaultConfig: map[string]any{"cron": "0 * * * *"}},
				{ID: "trigger-manual", Name: "Manual", Description: "Start from the editor"},
			},
			models.CategoryTypeAction: {
				{ID: "action-email", Name: "Send email", DefaultConfig: map[string]any{"to": "", "subject": "", "body": ""}},
				{ID: "action-http", Name: "HTTP request", DefaultConfig: map[string]any{"method": "GET", "url": ""}},
				{ID: "action-log", Name: "Log", DefaultConfig: map[string]any{"level": "info", "message": ""}},
			},
			models.CategoryTypeLogic: {
				{ID: "logic-condition", Name: "Condition", DefaultConfig: map[string]any{"expression": ""}},
				{ID: "logic-delay", Name: "Delay", DefaultConfig: map[string]any{"seconds": 60}},
			},
			models.CategoryTypeAI: {
				{ID: "ai-prompt", Name: "Prompt", DefaultConfig: map[string]any{"model": "", "prompt": ""}},
			},
		},
	}
}
