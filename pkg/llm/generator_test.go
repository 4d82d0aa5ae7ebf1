package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadv/yitam-admin-sub000/pkg/llm"
)

func TestNewWithConfig_Defaults(t *testing.T) {
	g, err := llm.NewWithConfig(llm.GeneratorConfig{})

	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestNewWithConfig_RejectsBadTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.GeneratorConfig{Temperature: 3})

	assert.Error(t, err)
}

func TestNewWithConfig_RejectsNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.GeneratorConfig{MaxTokens: -1})

	assert.Error(t, err)
}
