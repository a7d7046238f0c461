package resolver

import "github.com/harakeishi/goport/pkg/types"

const (
	// DefaultFrontendPort は自動割り当て時のプレースホルダです。
	DefaultFrontendPort = 3000
	// DefaultBackendPort は自動割り当て時のプレースホルダです。
	DefaultBackendPort = 3001
)

// BuildConfiguration は CLI の指定から候補となるポートペアを組み立てます。
// ネットワークには一切アクセスしません。
//
// 優先順位は frontend+backend の同時指定、port、frontend 単独、自動の順です。
// 自動の場合はプレースホルダを返し、実際の割り当ては Allocator が行います。
func BuildConfiguration(opts types.CLIOptions) types.PortConfiguration {
	switch {
	case opts.FrontendPort != nil && opts.BackendPort != nil:
		return types.PortConfiguration{
			Frontend: *opts.FrontendPort,
			Backend:  *opts.BackendPort,
		}
	case opts.Port != nil:
		return types.PortConfiguration{
			Frontend: *opts.Port,
			Backend:  *opts.Port + 1,
		}
	case opts.FrontendPort != nil:
		return types.PortConfiguration{
			Frontend: *opts.FrontendPort,
			Backend:  *opts.FrontendPort + 1,
		}
	default:
		return types.PortConfiguration{
			Frontend:     DefaultFrontendPort,
			Backend:      DefaultBackendPort,
			AutoDetected: true,
		}
	}
}

// requestedPorts は呼び出し元が実際に要求したポートを記録します。
func requestedPorts(opts types.CLIOptions) *types.RequestedPorts {
	switch {
	case opts.FrontendPort != nil && opts.BackendPort != nil:
		return &types.RequestedPorts{
			Frontend: types.IntPtr(*opts.FrontendPort),
			Backend:  types.IntPtr(*opts.BackendPort),
		}
	case opts.Port != nil:
		return &types.RequestedPorts{Frontend: types.IntPtr(*opts.Port)}
	case opts.FrontendPort != nil:
		return &types.RequestedPorts{Frontend: types.IntPtr(*opts.FrontendPort)}
	case opts.BackendPort != nil:
		return &types.RequestedPorts{Backend: types.IntPtr(*opts.BackendPort)}
	default:
		return nil
	}
}
