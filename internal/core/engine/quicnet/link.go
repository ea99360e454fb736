package quicnet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/multiformats/go-varint"
	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

// maxStreamFrame 流上单帧的长度上限
const maxStreamFrame = types.DefaultMaximumPacketSize + 64*1024

type outFrame struct {
	data     []byte
	reliable bool
}

// link 到一个远端地址的 QUIC 连接
type link struct {
	sock   *socket
	remote types.Address

	mu    sync.Mutex
	conn  *quic.Conn
	queue []outFrame

	// ready 在 queue 由空变为非空时收到通知
	ready chan struct{}
}

func newLink(s *socket, remote types.Address) *link {
	return &link{
		sock:   s,
		remote: remote,
		ready:  make(chan struct{}, 1),
	}
}

func (l *link) connection() *quic.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *link) setConnection(conn *quic.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

// enqueue 排队一帧
//
// 可靠帧总是入队；不可靠帧在队列长度达到 QueueSize 时丢弃。
func (l *link) enqueue(f outFrame) {
	l.mu.Lock()
	if !f.reliable && len(l.queue) >= l.sock.cfg.QueueSize {
		l.mu.Unlock()
		logger.Debug("链路发送队列已满，丢弃不可靠帧", "remote", l.remote, "size", len(f.data))
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// take 取出全部排队的帧
func (l *link) take() []outFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.queue
	l.queue = nil
	return q
}

// pending 排队的帧数
func (l *link) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// dial 拨号并在成功后服务链路
func (l *link) dial() {
	s := l.sock
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	conn, err := s.tr.Dial(ctx, l.remote.UDPAddr(), s.clientTLS, s.qconf)
	cancel()
	if err != nil {
		if s.ctx.Err() == nil {
			logger.Debug("拨号失败", "remote", l.remote, "error", err)
		}
		s.removeLink(l)
		return
	}
	l.setConnection(conn)
	logger.Debug("链路已建立", "remote", l.remote)
	l.serve(conn)
}

// serve 启动接收并在当前 goroutine 中发送，连接结束后移除链路
func (l *link) serve(conn *quic.Conn) {
	defer l.sock.removeLink(l)
	if !l.receive(conn) {
		_ = conn.CloseWithError(0, "socket closed")
		return
	}
	if err := l.write(conn); err != nil && l.sock.ctx.Err() == nil {
		logger.Debug("链路发送结束", "remote", l.remote, "error", err)
	}
	_ = conn.CloseWithError(0, "")
}

// receive 启动连接上的流和 datagram 接收
func (l *link) receive(conn *quic.Conn) bool {
	s := l.sock
	return s.spawn(func() { l.acceptStreams(conn) }) &&
		s.spawn(func() { l.readDatagrams(conn) })
}

func (l *link) write(conn *quic.Conn) error {
	s := l.sock
	var stream *quic.Stream
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-conn.Context().Done():
			return context.Cause(conn.Context())
		case <-l.ready:
		}

		for _, f := range l.take() {
			if !f.reliable && len(f.data) <= s.cfg.MTU {
				err := conn.SendDatagram(f.data)
				if err == nil {
					continue
				}
				var tooLarge *quic.DatagramTooLargeError
				if !errors.As(err, &tooLarge) {
					return fmt.Errorf("send datagram: %w", err)
				}
			}

			if stream == nil {
				str, err := conn.OpenStreamSync(s.ctx)
				if err != nil {
					return fmt.Errorf("open stream: %w", err)
				}
				stream = str
			}
			if err := writeFrame(stream, f.data); err != nil {
				return fmt.Errorf("write stream: %w", err)
			}
		}
	}
}

// acceptStreams 接收对端打开的流
func (l *link) acceptStreams(conn *quic.Conn) {
	for {
		str, err := conn.AcceptStream(l.sock.ctx)
		if err != nil {
			return
		}
		if !l.sock.spawn(func() { l.readStream(str) }) {
			str.CancelRead(0)
			return
		}
	}
}

func (l *link) readStream(str *quic.Stream) {
	r := bufio.NewReader(str)
	for {
		data, err := readFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && l.sock.ctx.Err() == nil {
				logger.Debug("读取流失败", "remote", l.remote, "error", err)
			}
			str.CancelRead(0)
			return
		}
		if !l.sock.push(interfaces.Datagram{From: l.remote, Data: data}) {
			return
		}
	}
}

func (l *link) readDatagrams(conn *quic.Conn) {
	for {
		data, err := conn.ReceiveDatagram(l.sock.ctx)
		if err != nil {
			return
		}
		if !l.sock.push(interfaces.Datagram{From: l.remote, Data: data}) {
			return
		}
	}
}

// ============================================================================
//                              流分帧
// ============================================================================

// writeFrame 写入 varint 长度前缀和帧内容
func writeFrame(w io.Writer, data []byte) error {
	buf := varint.ToUvarint(uint64(len(data)))
	buf = append(buf, data...)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧
func readFrame(r *bufio.Reader) ([]byte, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > maxStreamFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
