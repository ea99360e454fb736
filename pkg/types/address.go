package types

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ErrInvalidAddress 地址无效
var ErrInvalidAddress = errors.New("invalid address")

// ============================================================================
//                              Address - 网络端点
// ============================================================================

// Address 已解析的网络端点（IPv4 主机 + 端口）
//
// Address 是不可变值类型，可以安全地复制和比较。
// 零值表示无效地址。
type Address struct {
	ap netip.AddrPort
}

// NewAddress 从 IP 和端口创建地址
//
// IPv4-mapped IPv6 地址会被还原为 IPv4。
func NewAddress(ip netip.Addr, port uint16) Address {
	return Address{ap: netip.AddrPortFrom(ip.Unmap(), port)}
}

// AddressFrom 从 netip.AddrPort 创建地址
func AddressFrom(ap netip.AddrPort) Address {
	return NewAddress(ap.Addr(), ap.Port())
}

// AddressFromUDP 从 *net.UDPAddr 创建地址
func AddressFromUDP(addr *net.UDPAddr) Address {
	if addr == nil {
		return Address{}
	}
	return AddressFrom(addr.AddrPort())
}

// Localhost 返回 127.0.0.1:port
func Localhost(port uint16) Address {
	return NewAddress(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port)
}

// AnyAddress 返回 0.0.0.0:port（监听所有接口）
func AnyAddress(port uint16) Address {
	return NewAddress(netip.IPv4Unspecified(), port)
}

// ParseAddress 解析 "host:port" 格式的地址
//
// host 必须是 IP 字面量；主机名解析见 enet.ResolveAddress。
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: port %q", ErrInvalidAddress, portStr)
	}
	return NewAddress(ip, uint16(port)), nil
}

// IP 返回主机 IP
func (a Address) IP() netip.Addr {
	return a.ap.Addr()
}

// Port 返回端口
func (a Address) Port() uint16 {
	return a.ap.Port()
}

// Host 返回网络字节序的 IPv4 主机值
//
// 非 IPv4 地址返回 0。
func (a Address) Host() uint32 {
	ip := a.ap.Addr()
	if !ip.Is4() {
		return 0
	}
	b := ip.As4()
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// AddrPort 返回底层 netip.AddrPort
func (a Address) AddrPort() netip.AddrPort {
	return a.ap
}

// UDPAddr 转换为 *net.UDPAddr
func (a Address) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(a.ap)
}

// IsValid 检查地址是否有效
func (a Address) IsValid() bool {
	return a.ap.IsValid()
}

// IsUnspecified 检查是否为 0.0.0.0
func (a Address) IsUnspecified() bool {
	return a.ap.Addr().IsUnspecified()
}

// String 返回 "host:port" 形式
func (a Address) String() string {
	if !a.ap.IsValid() {
		return "<invalid>"
	}
	return a.ap.String()
}
