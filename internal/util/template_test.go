package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Trip to {{.destination}} on {{.current_date}}.", map[string]string{
		"destination": "Fortaleza",
	})
	require.NoError(t, err)
	assert.Equal(t, "Trip to Fortaleza on .", out)
}

func TestRenderTemplate_NoEscaping(t *testing.T) {
	out, err := RenderTemplate("{{.input}}", map[string]string{"input": `a < b & "c"`})
	require.NoError(t, err)
	assert.Equal(t, `a < b & "c"`, out)
}

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)
}

func TestRenderTemplate_Funcs(t *testing.T) {
	out, err := RenderTemplate(`{{default "unknown" .destination}} {{upper .x}}`, map[string]string{"x": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "unknown OK", out)
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
