package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_CoversAllTiers(t *testing.T) {
	config := DefaultConfig()

	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		assert.NotEmpty(t, config.GetModel(tier), "tier %s should have a model", tier)
	}
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
}

func TestGetModel_FallsBackThroughTiers(t *testing.T) {
	config := &Config{Models: map[ModelTier]string{
		TierStandard: "standard-model",
	}}

	assert.Equal(t, "standard-model", config.GetModel(TierAdvanced))
	assert.Equal(t, "standard-model", config.GetModel(TierLite))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Models: map[ModelTier]string{}}
	assert.Empty(t, config.GetModel(TierAdvanced))
}
