package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatV1(t *testing.T) {
	s, err := Chat("v1")
	require.NoError(t, err)

	assert.Equal(t, NameChat, s.Name)
	assert.Contains(t, s.Text, "AUXÍLIO RECONSTRUÇÃO")
	assert.Contains(t, s.Text, "Rio Grande do Sul")
	assert.Contains(t, s.Text, "JPG/PNG/PDF")
	assert.Empty(t, s.Lead)
}

func TestExtractionV1(t *testing.T) {
	s, err := Extraction("v1")
	require.NoError(t, err)

	assert.Contains(t, s.Text, "Retorne os dados em formato JSON estruturado.")
	assert.Equal(t, "Extraia todas as informações deste documento:", s.Lead)
}

func TestUnknownVersion(t *testing.T) {
	_, err := Chat("v99")
	assert.EqualError(t, err, `unknown chat script version "v99" (available: v1)`)

	_, err = Extraction("v0")
	assert.EqualError(t, err, `unknown extraction script version "v0" (available: v1)`)
}
