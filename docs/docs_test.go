package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocument(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "/api/v1", doc.BasePath)

	for _, path := range []string{
		"/auth/login",
		"/sessions",
		"/stats/summary",
		"/timer/events",
		"/timer/focus/start",
		"/timer/breathing/start",
		"/sleep/summaries",
		"/audio/tones/{cue}",
		"/audio/noise/{color}",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}
