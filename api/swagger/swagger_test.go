package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocIsRegisteredAndValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	for _, path := range []string{
		"/availability-slots",
		"/availability-slots/bulk",
		"/availability-slots/conflicts",
		"/availability-slots/imports/{jobId}",
		"/availability-slots/{id}",
	} {
		assert.Contains(t, parsed.Paths, path)
	}
}
