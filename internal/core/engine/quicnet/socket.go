package quicnet

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"
	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

// socket 一个 UDP 端口上的全部链路
type socket struct {
	cfg       Config
	qconf     *quic.Config
	clientTLS *tls.Config

	udp   *net.UDPConn
	tr    *quic.Transport
	ln    *quic.Listener
	local types.Address

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.Mutex
	closed bool
	links  map[types.Address]*link

	incoming chan interfaces.Datagram
}

func (s *socket) LocalAddr() types.Address {
	return s.local
}

func (s *socket) MTU() int {
	return s.cfg.MTU
}

func (s *socket) Incoming() <-chan interfaces.Datagram {
	return s.incoming
}

// Send 将帧交给目标链路，链路不存在时异步拨号
func (s *socket) Send(to types.Address, frame []byte, reliable bool) error {
	if !to.IsValid() || !to.IP().Is4() {
		return ErrNotIPv4
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	l, ok := s.links[to]
	if !ok {
		l = newLink(s, to)
		s.links[to] = l
		s.g.Go(func() error {
			l.dial()
			return nil
		})
	}
	s.mu.Unlock()

	l.enqueue(outFrame{data: append([]byte(nil), frame...), reliable: reliable})
	return nil
}

// Close 关闭所有链路和 UDP socket
func (s *socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	links := s.links
	s.links = nil
	s.mu.Unlock()

	s.cancel()

	var err error
	for _, l := range links {
		if c := l.connection(); c != nil {
			err = multierr.Append(err, c.CloseWithError(0, "socket closed"))
		}
	}
	if s.ln != nil {
		err = multierr.Append(err, s.ln.Close())
	}
	err = multierr.Append(err, s.tr.Close())
	if cerr := s.udp.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = multierr.Append(err, cerr)
	}

	_ = s.g.Wait()
	close(s.incoming)

	logger.Debug("套接字已关闭", "addr", s.local)
	return err
}

// spawn 在套接字的 errgroup 中启动 goroutine，套接字已关闭时返回 false
func (s *socket) spawn(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.g.Go(func() error {
		fn()
		return nil
	})
	return true
}

// push 投递收到的帧，接收队列满时等待
func (s *socket) push(d interfaces.Datagram) bool {
	select {
	case s.incoming <- d:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *socket) removeLink(l *link) {
	s.mu.Lock()
	if s.links[l.remote] == l {
		delete(s.links, l.remote)
	}
	s.mu.Unlock()
}

// accept 接受入站连接
func (s *socket) accept() error {
	var catcher temperrcatcher.TempErrCatcher
	for {
		conn, err := s.ln.Accept(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if catcher.IsTemporary(err) {
				continue
			}
			logger.Warn("接受连接失败", "addr", s.local, "error", err)
			return nil
		}

		udpAddr, ok := conn.RemoteAddr().(*net.UDPAddr)
		if !ok {
			_ = conn.CloseWithError(0, "unsupported address")
			continue
		}
		s.adopt(types.AddressFromUDP(udpAddr), conn)
	}
}

// adopt 为入站连接建立链路
//
// 已有同一远端的链路时（双方同时拨号），入站连接只用于接收。
func (s *socket) adopt(remote types.Address, conn *quic.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.CloseWithError(0, "socket closed")
		return
	}
	existing, ok := s.links[remote]
	if ok {
		s.mu.Unlock()
		logger.Debug("链路已存在，入站连接仅用于接收", "remote", remote)
		existing.receive(conn)
		return
	}
	l := newLink(s, remote)
	l.setConnection(conn)
	s.links[remote] = l
	s.g.Go(func() error {
		l.serve(conn)
		return nil
	})
	s.mu.Unlock()

	logger.Debug("接受入站链路", "remote", remote)
}
