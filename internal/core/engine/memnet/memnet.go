// Package memnet 提供进程内数据报网络
//
// memnet 实现 interfaces.Network，用于测试和演示：
// 所有套接字注册在同一个 Network 中，按地址直接投递，不经过操作系统。
// 投递有序。接收队列满时帧进入积压队列，由后台 goroutine 按序补投；
// 可靠帧从不丢弃，不可靠帧在积压超过队列长度时丢弃。
//
// Block / Unblock 用于模拟网络中断：被阻断地址收发的帧全部丢弃。
package memnet

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

const (
	// DefaultMTU 默认 MTU
	DefaultMTU = 1400

	// DefaultQueueSize 每个套接字的接收队列长度，同时是不可靠帧的积压上限
	DefaultQueueSize = 4096

	// firstEphemeralPort 临时端口起点
	firstEphemeralPort = 49152
)

var (
	// ErrAddressInUse 地址已被占用
	ErrAddressInUse = errors.New("address already in use")

	// ErrClosed 套接字已关闭
	ErrClosed = errors.New("socket closed")

	// ErrNoPorts 临时端口耗尽
	ErrNoPorts = errors.New("no ephemeral ports available")
)

var _ interfaces.Network = (*Network)(nil)

// Network 进程内网络
type Network struct {
	mu       sync.Mutex
	sockets  map[netip.AddrPort]*socket
	blocked  map[netip.AddrPort]struct{}
	nextPort uint16

	mtu       int
	queueSize int
}

// New 创建进程内网络
func New() *Network {
	return &Network{
		sockets:   make(map[netip.AddrPort]*socket),
		blocked:   make(map[netip.AddrPort]struct{}),
		nextPort:  firstEphemeralPort,
		mtu:       DefaultMTU,
		queueSize: DefaultQueueSize,
	}
}

// Open 打开套接字
//
// bind 为 nil 时绑定 127.0.0.1 的临时端口；端口为 0 时分配临时端口。
func (n *Network) Open(bind *types.Address) (interfaces.Socket, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ip := netip.AddrFrom4([4]byte{127, 0, 0, 1})
	var port uint16
	if bind != nil {
		if !bind.IsValid() {
			return nil, fmt.Errorf("memnet: %w", types.ErrInvalidAddress)
		}
		ip = bind.IP()
		port = bind.Port()
	}
	if port == 0 {
		p, err := n.allocatePort(ip)
		if err != nil {
			return nil, err
		}
		port = p
	}

	ap := netip.AddrPortFrom(ip, port)
	if _, ok := n.lookup(ap); ok {
		return nil, fmt.Errorf("memnet: %s: %w", ap, ErrAddressInUse)
	}

	s := &socket{
		network:  n,
		bound:    ap,
		incoming: make(chan interfaces.Datagram, n.queueSize),
		done:     make(chan struct{}),
	}
	n.sockets[ap] = s
	return s, nil
}

// Block 阻断地址的全部收发
func (n *Network) Block(addr types.Address) {
	n.mu.Lock()
	n.blocked[addr.AddrPort()] = struct{}{}
	n.mu.Unlock()
}

// Unblock 恢复地址的收发
func (n *Network) Unblock(addr types.Address) {
	n.mu.Lock()
	delete(n.blocked, addr.AddrPort())
	n.mu.Unlock()
}

// Len 打开的套接字数
func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sockets)
}

func (n *Network) allocatePort(ip netip.Addr) (uint16, error) {
	for i := 0; i < 65536-firstEphemeralPort; i++ {
		port := n.nextPort
		n.nextPort++
		if n.nextPort == 0 {
			n.nextPort = firstEphemeralPort
		}
		if _, ok := n.lookup(netip.AddrPortFrom(ip, port)); !ok {
			return port, nil
		}
	}
	return 0, ErrNoPorts
}

// lookup 查找目标套接字，精确地址优先，其次是同端口的通配地址
func (n *Network) lookup(ap netip.AddrPort) (*socket, bool) {
	if s, ok := n.sockets[ap]; ok {
		return s, true
	}
	if s, ok := n.sockets[netip.AddrPortFrom(netip.IPv4Unspecified(), ap.Port())]; ok {
		return s, true
	}
	if ap.Addr().IsUnspecified() {
		for k, s := range n.sockets {
			if k.Port() == ap.Port() {
				return s, true
			}
		}
	}
	return nil, false
}

func (n *Network) deliver(from, to netip.AddrPort, frame []byte, reliable bool) {
	n.mu.Lock()
	_, fromBlocked := n.blocked[from]
	_, toBlocked := n.blocked[to]
	dst, ok := n.lookup(to)
	n.mu.Unlock()
	if !ok || fromBlocked || toBlocked {
		return
	}
	dst.push(interfaces.Datagram{
		From: types.AddressFrom(from),
		Data: append([]byte(nil), frame...),
	}, reliable)
}

func (n *Network) remove(s *socket) {
	n.mu.Lock()
	if n.sockets[s.bound] == s {
		delete(n.sockets, s.bound)
	}
	n.mu.Unlock()
}

// ============================================================================
//                              socket
// ============================================================================

type socket struct {
	network *Network
	bound   netip.AddrPort

	mu       sync.Mutex
	closed   bool
	incoming chan interfaces.Datagram

	// backlog 等待进入 incoming 的帧，非空时有一个 drain goroutine 在运行
	backlog []interfaces.Datagram
	done    chan struct{}
	wg      sync.WaitGroup
}

// LocalAddr 本地地址
//
// 绑定通配地址时返回 127.0.0.1，便于作为回复地址。
func (s *socket) LocalAddr() types.Address {
	return types.AddressFrom(s.source())
}

func (s *socket) source() netip.AddrPort {
	if s.bound.Addr().IsUnspecified() {
		return netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), s.bound.Port())
	}
	return s.bound
}

func (s *socket) Send(to types.Address, frame []byte, reliable bool) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.network.deliver(s.source(), to.AddrPort(), frame, reliable)
	return nil
}

// push 投递一帧
//
// 没有积压时直接放入 incoming；否则追加到积压队列尾部以保持顺序。
func (s *socket) push(d interfaces.Datagram, reliable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.backlog) == 0 {
		select {
		case s.incoming <- d:
			return
		default:
		}
	}
	if !reliable && len(s.backlog) >= s.network.queueSize {
		return
	}
	s.backlog = append(s.backlog, d)
	if len(s.backlog) == 1 {
		s.wg.Add(1)
		go s.drain()
	}
}

// drain 按序把积压的帧移入 incoming，积压清空或套接字关闭时退出
//
// 队首帧在写入 incoming 之后才出队，push 因此不会越过它直接投递。
func (s *socket) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		d := s.backlog[0]
		s.mu.Unlock()

		select {
		case s.incoming <- d:
		case <-s.done:
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.backlog[0] = interfaces.Datagram{}
		s.backlog = s.backlog[1:]
		empty := len(s.backlog) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

func (s *socket) Incoming() <-chan interfaces.Datagram {
	return s.incoming
}

func (s *socket) MTU() int {
	return s.network.mtu
}

func (s *socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.backlog = nil
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.incoming)
	s.network.remove(s)
	return nil
}
