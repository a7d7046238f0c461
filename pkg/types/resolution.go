package types

import "fmt"

// PortRole はペア内でのポートの役割です。
type PortRole string

const (
	PortRoleFrontend PortRole = "frontend"
	PortRoleBackend  PortRole = "backend"
)

// PortResolution は要求ポートから実際に割り当てたポートへの置き換えを表します。
type PortResolution struct {
	Role          PortRole `json:"role" yaml:"role"`
	RequestedPort int      `json:"requested_port" yaml:"requested_port"`
	ResolvedPort  int      `json:"resolved_port" yaml:"resolved_port"`
}

// Changed は要求と異なるポートになったかを返します。
func (r PortResolution) Changed() bool {
	return r.RequestedPort != r.ResolvedPort
}

// String は利用者向けのメッセージを返します。
func (r PortResolution) String() string {
	return fmt.Sprintf("%s: 要求されたポート %d は使用できないため %d を使用します", r.Role, r.RequestedPort, r.ResolvedPort)
}

// Resolutions は設定から置き換えの一覧を作成します。
// 置き換えが発生していない場合は空になります。
func (c PortConfiguration) Resolutions() []PortResolution {
	if c.RequestedPorts == nil {
		return nil
	}

	var out []PortResolution
	if f := c.RequestedPorts.Frontend; f != nil && *f != c.Frontend {
		out = append(out, PortResolution{Role: PortRoleFrontend, RequestedPort: *f, ResolvedPort: c.Frontend})
	}
	if b := c.RequestedPorts.Backend; b != nil && *b != c.Backend {
		out = append(out, PortResolution{Role: PortRoleBackend, RequestedPort: *b, ResolvedPort: c.Backend})
	}
	return out
}
