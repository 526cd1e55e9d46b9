package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCollectionsReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"object shape", `{"agent_response":"hola"}`, "hola"},
		{"bare string", `"hola directa"`, "hola directa"},
		{"missing field", `{"other":"x"}`, ""},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := ExtractCollectionsReply(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Text)
			assert.Empty(t, reply.ImageB64)
		})
	}
}

func TestExtractPortfolioReply(t *testing.T) {
	reply, err := ExtractPortfolioReply(json.RawMessage(`{"response":"análisis listo","image_base64":"aW1n"}`))
	require.NoError(t, err)
	assert.Equal(t, "análisis listo", reply.Text)
	assert.Equal(t, "aW1n", reply.ImageB64)

	reply, err = ExtractPortfolioReply(json.RawMessage(`{"response":"sin imagen"}`))
	require.NoError(t, err)
	assert.Equal(t, "sin imagen", reply.Text)
	assert.Empty(t, reply.ImageB64)

	_, err = ExtractPortfolioReply(json.RawMessage(`not json`))
	assert.Error(t, err)
}
