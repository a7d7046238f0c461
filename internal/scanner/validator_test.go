package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

// TestValidatePortRange は範囲検証の境界を確認します。
func TestValidatePortRange(t *testing.T) {
	v := NewPortValidatorImpl(logger.NewNopLogger())
	ctx := context.Background()

	assert.NoError(t, v.ValidatePortRange(ctx, types.PortRange{Start: 8000, End: 8100}))
	assert.NoError(t, v.ValidatePortRange(ctx, types.PortRange{Start: 1, End: 65535}))

	for _, r := range []types.PortRange{
		{Start: 0, End: 10},
		{Start: 10, End: 65536},
		{Start: 9000, End: 8000},
	} {
		err := v.ValidatePortRange(ctx, r)
		assert.Error(t, err, "range %v", r)
		assert.True(t, errors.IsInvalidPort(err))
	}
}

// TestValidateOptions は CLI のポート指定検証を確認します。
func TestValidateOptions(t *testing.T) {
	v := NewPortValidatorImpl(logger.NewNopLogger())
	p := types.IntPtr

	tests := []struct {
		name    string
		opts    types.CLIOptions
		wantErr bool
	}{
		{name: "empty", opts: types.CLIOptions{}},
		{name: "port", opts: types.CLIOptions{Port: p(3000)}},
		{name: "pair", opts: types.CLIOptions{FrontendPort: p(3000), BackendPort: p(4000)}},
		{name: "frontend only", opts: types.CLIOptions{FrontendPort: p(3000)}},
		{name: "negative", opts: types.CLIOptions{Port: p(-1)}, wantErr: true},
		{name: "too large", opts: types.CLIOptions{Port: p(70000)}, wantErr: true},
		{name: "no room for backend", opts: types.CLIOptions{Port: p(65535)}, wantErr: true},
		{name: "same pair", opts: types.CLIOptions{FrontendPort: p(3000), BackendPort: p(3000)}, wantErr: true},
		{name: "backend only", opts: types.CLIOptions{BackendPort: p(3001)}, wantErr: true},
		{name: "backend out of range", opts: types.CLIOptions{FrontendPort: p(3000), BackendPort: p(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateOptions(context.Background(), tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsInvalidPort(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
