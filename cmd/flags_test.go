package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harakeishi/goport/pkg/types"
)

func newPortFlagSet() *pflag.FlagSet {
	var port, frontend, backend int
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addPortFlags(fs, &port, &frontend, &backend)
	return fs
}

func TestPortOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want types.CLIOptions
	}{
		{name: "none", args: nil, want: types.CLIOptions{}},
		{name: "port", args: []string{"--port", "4000"}, want: types.CLIOptions{Port: types.IntPtr(4000)}},
		{name: "explicit zero is kept", args: []string{"-p", "0"}, want: types.CLIOptions{Port: types.IntPtr(0)}},
		{
			name: "pair",
			args: []string{"--frontend-port", "5173", "--backend-port", "8080"},
			want: types.CLIOptions{FrontendPort: types.IntPtr(5173), BackendPort: types.IntPtr(8080)},
		},
		{name: "backend only", args: []string{"--backend-port", "8080"}, want: types.CLIOptions{BackendPort: types.IntPtr(8080)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newPortFlagSet()
			require.NoError(t, fs.Parse(tt.args))
			assert.Equal(t, tt.want, portOptions(fs))
		})
	}
}

func TestPortRangeValue(t *testing.T) {
	v := portRangeValue{Start: 8000, End: 8100}
	assert.Equal(t, "8000-8100", v.String())
	assert.Equal(t, "range", v.Type())

	require.NoError(t, v.Set("3000-3010"))
	assert.Equal(t, portRangeValue{Start: 3000, End: 3010}, v)

	assert.Error(t, v.Set("3010-3000"))
	assert.Error(t, v.Set("abc"))
	assert.Equal(t, portRangeValue{Start: 3000, End: 3010}, v, "failed Set keeps the previous value")
}

func TestParsePortArgs(t *testing.T) {
	ports, err := parsePortArgs([]string{"3000", " 8080 "})
	require.NoError(t, err)
	assert.Equal(t, []int{3000, 8080}, ports)

	for _, bad := range []string{"0", "65536", "1.5", "http", ""} {
		_, err := parsePortArgs([]string{bad})
		assert.Error(t, err, bad)
	}
}
