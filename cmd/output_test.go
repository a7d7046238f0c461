package cmd

import (
	"bytes"
	"io"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/harakeishi/goport/pkg/types"
)

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml", "JSON"} {
		assert.NoError(t, validateFormat(f), f)
	}
	assert.Error(t, validateFormat("xml"))
}

func TestWriteOutput(t *testing.T) {
	cfg := types.PortConfiguration{
		Frontend:       3002,
		Backend:        3003,
		AutoDetected:   true,
		RequestedPorts: &types.RequestedPorts{Frontend: types.IntPtr(3000)},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, formatJSON, cfg, nil))

		var got types.PortConfiguration
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, 3002, got.Frontend)
		assert.Equal(t, 3003, got.Backend)
		require.NotNil(t, got.RequestedPorts)
		assert.Equal(t, 3000, *got.RequestedPorts.Frontend)
		assert.Nil(t, got.RequestedPorts.Backend)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, formatYAML, cfg, nil))

		var got map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, 3002, got["frontend"])
		assert.Equal(t, true, got["auto_detected"])
	})

	t.Run("text uses renderer", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		require.NoError(t, writeOutput(&buf, formatText, cfg, func(w io.Writer) error {
			called = true
			return renderPortConfiguration(w, cfg)
		}))
		assert.True(t, called)
		assert.Contains(t, buf.String(), "3000")
		assert.Contains(t, buf.String(), "3002")
	})
}
