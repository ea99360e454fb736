package enet

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-enet/pkg/types"
)

// ============================================================================
//                              地址构造
// ============================================================================

// Localhost 返回 127.0.0.1:port
func Localhost(port uint16) Address {
	return types.Localhost(port)
}

// AnyAddress 返回 0.0.0.0:port
func AnyAddress(port uint16) Address {
	return types.AnyAddress(port)
}

// NewAddress 从 IP 和端口创建地址
func NewAddress(ip netip.Addr, port uint16) Address {
	return types.NewAddress(ip, port)
}

// ParseAddress 解析 "ip:port"
func ParseAddress(s string) (Address, error) {
	return types.ParseAddress(s)
}

// ============================================================================
//                              主机名解析
// ============================================================================

// lookupFunc 与 net.Resolver.LookupNetIP 相同的签名
type lookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// Resolver 主机名到 IPv4 地址的解析器，带过期缓存
type Resolver struct {
	lookup lookupFunc
	cache  *expirable.LRU[string, netip.Addr]
}

// NewResolver 创建解析器
//
// size 为 0 时不缓存。
func NewResolver(size int, ttl time.Duration) *Resolver {
	r := &Resolver{lookup: net.DefaultResolver.LookupNetIP}
	if size > 0 {
		r.cache = expirable.NewLRU[string, netip.Addr](size, nil, ttl)
	}
	return r
}

// Resolve 解析主机名
//
// IP 字面量直接返回；只接受 IPv4 结果。
func (r *Resolver) Resolve(ctx context.Context, host string, port uint16) (Address, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if !ip.Is4() {
			return Address{}, fmt.Errorf("%w: %s", ErrNoIPv4Address, host)
		}
		return NewAddress(ip, port), nil
	}

	if r.cache != nil {
		if ip, ok := r.cache.Get(host); ok {
			return NewAddress(ip, port), nil
		}
	}

	ips, err := r.lookup(ctx, "ip4", host)
	if err != nil {
		return Address{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		ip = ip.Unmap()
		if !ip.Is4() {
			continue
		}
		if r.cache != nil {
			r.cache.Add(host, ip)
		}
		logger.Debug("主机名已解析", "host", host, "ip", ip)
		return NewAddress(ip, port), nil
	}
	return Address{}, fmt.Errorf("%w: %s", ErrNoIPv4Address, host)
}

// Purge 清空缓存
func (r *Resolver) Purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

var defaultResolver = NewResolver(128, 5*time.Minute)

// ResolveAddress 使用默认解析器解析主机名
func ResolveAddress(ctx context.Context, host string, port uint16) (Address, error) {
	return defaultResolver.Resolve(ctx, host, port)
}
