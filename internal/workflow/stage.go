package workflow

import (
	"github.com/drcash-dev/drcash/internal/mapping"
	"github.com/drcash-dev/drcash/internal/model"
)

// DeriveStage computes the workflow stage. Rules apply in order: missing
// uploads, then incomplete mappings, then a missing run result.
func DeriveStage(
	bankFiles []model.FileIdentity,
	bankConfigs map[model.FileIdentity]model.MappingConfig,
	taxFile *model.FileIdentity,
	taxConfig model.MappingConfig,
	hasRunResult bool,
) model.WorkflowStage {
	if len(bankFiles) == 0 || taxFile == nil {
		return model.StageUploadPending
	}
	for _, id := range bankFiles {
		if !mapping.Complete(bankConfigs[id], model.DocumentBank) {
			return model.StageMappingPending
		}
	}
	if !mapping.Complete(taxConfig, model.DocumentTax) {
		return model.StageMappingPending
	}
	if !hasRunResult {
		return model.StageReady
	}
	return model.StageComplete
}
