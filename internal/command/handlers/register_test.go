package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/constants"
)

func TestRegisterAll(t *testing.T) {
	require.NoError(t, RegisterAll())

	assert.Equal(t, []string{
		constants.ActBaseline,
		constants.ActHelp,
		constants.ActQualityGate,
		constants.ActTrackMetrics,
		constants.ActVersion,
	}, command.Names())

	assert.Error(t, RegisterAll(), "повторная регистрация должна вернуть ошибку")
}
