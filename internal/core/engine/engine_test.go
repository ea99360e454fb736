package engine

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-enet/internal/core/engine/memnet"
	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type testNet struct {
	clock  *clock.Mock
	net    *memnet.Network
	engine *Engine
}

func newTestNet(t *testing.T, cfg Config) *testNet {
	t.Helper()
	tn := &testNet{clock: clock.NewMock(), net: memnet.New()}
	tn.engine = New(tn.net, WithConfig(cfg), WithClock(tn.clock))
	require.NoError(t, tn.engine.Initialize())
	t.Cleanup(tn.engine.Deinitialize)
	return tn
}

func (tn *testNet) host(t *testing.T, bind *types.Address, peers int) *Host {
	t.Helper()
	raw, err := tn.engine.HostCreate(bind, peers, 2, 0, 0)
	require.NoError(t, err)
	return raw.(*Host)
}

func (tn *testNet) server(t *testing.T, port uint16, peers int) *Host {
	addr := types.Localhost(port)
	return tn.host(t, &addr, peers)
}

// poll 执行一次非阻塞 Service
func (tn *testNet) poll(t *testing.T, h *Host) interfaces.EventRecord {
	t.Helper()
	ev, err := tn.engine.HostService(h, 0)
	require.NoError(t, err)
	return ev
}

func (tn *testNet) expect(t *testing.T, h *Host, typ types.EventType) interfaces.EventRecord {
	t.Helper()
	ev := tn.poll(t, h)
	require.Equal(t, typ, ev.Type, "事件类型不符")
	return ev
}

// connectPair 完成一次完整握手，返回双方的节点
func (tn *testNet) connectPair(t *testing.T, client, server *Host, channels int, data uint32) (*Peer, *Peer) {
	t.Helper()
	raw, err := tn.engine.HostConnect(client, server.Address(), channels, data)
	require.NoError(t, err)
	cp := raw.(*Peer)
	require.Equal(t, types.PeerStateConnecting, cp.State())

	tn.expect(t, client, types.EventTypeNone)
	tn.expect(t, server, types.EventTypeNone)

	ev := tn.expect(t, client, types.EventTypeConnect)
	require.Same(t, cp, ev.Peer)
	tn.engine.HostFlush(client)

	ev = tn.expect(t, server, types.EventTypeConnect)
	assert.Equal(t, data, ev.Data)
	return cp, ev.Peer.(*Peer)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaximumPacketSize = 64 * 1024
	return cfg
}

// ============================================================================
//                              生命周期
// ============================================================================

func TestEngine_Lifecycle(t *testing.T) {
	net := memnet.New()
	e := New(net, WithClock(clock.NewMock()))

	_, err := e.HostCreate(nil, 1, 1, 0, 0)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Initialize(), ErrAlreadyInitialized)
	assert.Equal(t, "1.3.18", e.LinkedVersion().String())

	t.Run("节点数校验", func(t *testing.T) {
		_, err := e.HostCreate(nil, 0, 1, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidPeerCount)
		_, err = e.HostCreate(nil, types.MaxPeers+1, 1, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidPeerCount)
	})

	t.Run("通道上限归一", func(t *testing.T) {
		h, err := e.HostCreate(nil, 1, 0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, types.MaxChannelCount, h.ChannelLimit())
		e.HostDestroy(h)
	})

	_, err = e.HostCreate(nil, 4, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, net.Len())

	// 关闭引擎时销毁遗留的主机
	e.Deinitialize()
	assert.Equal(t, 0, net.Len())

	require.NoError(t, e.Initialize(), "关闭后可以重新初始化")
	e.Deinitialize()
}

func TestEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeoutLimit = 0
	e := New(memnet.New(), WithConfig(cfg))
	assert.Error(t, e.Initialize())
}

func TestEngine_ForeignHandlePanics(t *testing.T) {
	tn := newTestNet(t, testConfig())
	other := newTestNet(t, testConfig())
	h := other.host(t, nil, 1)

	assert.Panics(t, func() { tn.engine.HostFlush(h) })
}

// ============================================================================
//                              握手
// ============================================================================

func TestEngine_Handshake(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7100, 8)
	client := tn.host(t, nil, 1)

	raw, err := tn.engine.HostConnect(client, server.Address(), 4, 0xabc)
	require.NoError(t, err)
	cp := raw.(*Peer)
	assert.Equal(t, types.PeerStateConnecting, cp.State())
	assert.NotZero(t, cp.ConnectID())
	assert.Equal(t, server.Address(), cp.Address())

	// 发起方发出 CONNECT
	tn.expect(t, client, types.EventTypeNone)

	// 响应方回复 VERIFY_CONNECT
	tn.expect(t, server, types.EventTypeNone)
	require.Equal(t, 1, countState(server, types.PeerStateConnectionPending))

	// 发起方收到 VERIFY_CONNECT 后立即派发 Connect，确认帧尚未发出
	ev := tn.expect(t, client, types.EventTypeConnect)
	assert.Same(t, cp, ev.Peer)
	assert.Equal(t, uint32(0), ev.Data)
	assert.Equal(t, types.PeerStateConnected, cp.State())
	assert.Equal(t, 1, client.ConnectedPeers())
	assert.Equal(t, 2, cp.ChannelCount(), "通道数取请求值与响应方上限的较小者")

	tn.expect(t, server, types.EventTypeNone)
	assert.Equal(t, 0, server.ConnectedPeers(), "确认帧到达前响应方不应派发 Connect")

	tn.engine.HostFlush(client)
	ev = tn.expect(t, server, types.EventTypeConnect)
	sp := ev.Peer.(*Peer)
	assert.Equal(t, uint32(0xabc), ev.Data)
	assert.Equal(t, types.PeerStateConnected, sp.State())
	assert.Equal(t, cp.ConnectID(), sp.ConnectID())
	assert.Equal(t, client.Address(), sp.Address())
	assert.Equal(t, 2, sp.ChannelCount())
	assert.Equal(t, 1, server.ConnectedPeers())
}

func TestEngine_DuplicateConnectIgnored(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7101, 8)
	client := tn.host(t, nil, 1)

	raw, err := tn.engine.HostConnect(client, server.Address(), 1, 0)
	require.NoError(t, err)
	cp := raw.(*Peer)

	// 同一个 CONNECT 到达两次
	client.mu.Lock()
	cp.queue(&frame{Command: cmdConnect, ChannelCount: 1})
	client.mu.Unlock()
	tn.expect(t, client, types.EventTypeNone)
	tn.expect(t, server, types.EventTypeNone)

	assert.Equal(t, 1, countState(server, types.PeerStateConnectionPending))
}

func TestEngine_NoFreePeer(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7102, 1)
	client := tn.host(t, nil, 1)

	_, err := tn.engine.HostConnect(client, server.Address(), 1, 0)
	require.NoError(t, err)
	_, err = tn.engine.HostConnect(client, server.Address(), 1, 0)
	assert.ErrorIs(t, err, ErrNoFreePeer)

	_, err = tn.engine.HostConnect(client, types.AnyAddress(1), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	t.Run("响应方槽位已满时忽略连接请求", func(t *testing.T) {
		tn.poll(t, client)
		tn.poll(t, server)

		other := tn.host(t, nil, 1)
		raw, err := tn.engine.HostConnect(other, server.Address(), 1, 0)
		require.NoError(t, err)
		tn.expect(t, other, types.EventTypeNone)
		tn.expect(t, server, types.EventTypeNone)
		tn.expect(t, other, types.EventTypeNone)
		assert.Equal(t, types.PeerStateConnecting, raw.State())
	})
}

func TestEngine_ConnectTimeout(t *testing.T) {
	tn := newTestNet(t, testConfig())
	client := tn.host(t, nil, 1)

	raw, err := tn.engine.HostConnect(client, types.Localhost(9), 1, 0)
	require.NoError(t, err)

	var ev interfaces.EventRecord
	for i := 0; i < 10 && ev.Type == types.EventTypeNone; i++ {
		tn.clock.Add(time.Second)
		ev = tn.poll(t, client)
	}
	require.Equal(t, types.EventTypeDisconnect, ev.Type)
	assert.Same(t, raw, ev.Peer)
	assert.Equal(t, types.PeerStateDisconnected, raw.State())
}

// ============================================================================
//                              数据传输
// ============================================================================

func TestEngine_SendReceive(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7110, 8)
	client := tn.host(t, nil, 1)
	cp, sp := tn.connectPair(t, client, server, 2, 0)

	tests := []struct {
		name    string
		channel uint8
		flags   types.PacketFlags
	}{
		{"可靠", 0, types.FlagReliable},
		{"不可靠有序", 1, 0},
		{"无序", 1, types.FlagUnsequenced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(tt.name)
			pkt, err := tn.engine.PacketCreate(payload, tt.flags)
			require.NoError(t, err)
			require.NoError(t, tn.engine.PeerSend(cp, tt.channel, pkt))
			assert.True(t, pkt.(*Packet).Destroyed(), "发送成功后数据包归引擎所有")

			tn.engine.HostFlush(client)
			ev := tn.expect(t, server, types.EventTypeReceive)
			assert.Same(t, sp, ev.Peer)
			assert.Equal(t, tt.channel, ev.ChannelID)
			assert.Equal(t, payload, ev.Packet.Data())
			assert.Equal(t, tt.flags, ev.Packet.Flags())
			tn.engine.PacketDestroy(ev.Packet)
		})
	}

	assert.NotZero(t, client.TotalSentPackets())
	assert.NotZero(t, server.TotalReceivedData())
}

func TestEngine_SendErrors(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7111, 8)
	client := tn.host(t, nil, 2)

	raw, err := tn.engine.HostConnect(client, server.Address(), 1, 0)
	require.NoError(t, err)

	pkt, err := tn.engine.PacketCreate([]byte{1}, types.FlagReliable)
	require.NoError(t, err)
	assert.ErrorIs(t, tn.engine.PeerSend(raw, 0, pkt), ErrPeerNotConnected)
	assert.False(t, pkt.(*Packet).Destroyed(), "发送失败时数据包仍归调用方")

	other := tn.server(t, 7112, 8)
	cp, _ := tn.connectPair(t, client, other, 1, 0)
	assert.ErrorIs(t, tn.engine.PeerSend(cp, 1, pkt), ErrInvalidChannel)

	_, err = tn.engine.PacketCreate(make([]byte, 64*1024+1), 0)
	assert.ErrorIs(t, err, ErrPacketTooLarge)

	tn.engine.PacketDestroy(pkt)
	assert.ErrorIs(t, tn.engine.PeerSend(cp, 0, pkt), ErrPacketDestroyed)
}

func TestEngine_ReliableOrdering(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7113, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	// 手工构造乱序到达的可靠帧
	send := func(seq uint32, body string) {
		f := &frame{Command: cmdSendReliable, Sequence: seq, Flags: types.FlagReliable, Payload: []byte(body)}
		client.mu.Lock()
		cp.queue(f)
		client.flush()
		client.mu.Unlock()
	}
	send(2, "second")
	send(3, "third")
	send(1, "first")
	send(1, "dup")

	for _, want := range []string{"first", "second", "third"} {
		ev := tn.expect(t, server, types.EventTypeReceive)
		assert.Equal(t, want, string(ev.Packet.Data()))
	}
	tn.expect(t, server, types.EventTypeNone)
}

func TestEngine_ReliableBurstBeyondQueue(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7109, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	total := memnet.DefaultQueueSize + 904
	for i := 0; i <= total; i++ {
		payload := []byte(fmt.Sprint(i))
		if i == total {
			payload = []byte("tail")
		}
		pkt, err := tn.engine.PacketCreate(payload, types.FlagReliable)
		require.NoError(t, err)
		require.NoError(t, tn.engine.PeerSend(cp, 0, pkt))
	}
	tn.engine.HostFlush(client)

	received := 0
	deadline := time.Now().Add(5 * time.Second)
	for received <= total && time.Now().Before(deadline) {
		ev := tn.poll(t, server)
		if ev.Type == types.EventTypeNone {
			time.Sleep(time.Millisecond)
			continue
		}
		require.Equal(t, types.EventTypeReceive, ev.Type)
		want := fmt.Sprint(received)
		if received == total {
			want = "tail"
		}
		require.Equal(t, want, string(ev.Packet.Data()), "可靠数据包丢失或乱序")
		tn.engine.PacketDestroy(ev.Packet)
		received++
	}
	assert.Equal(t, total+1, received)
}

func TestEngine_UnreliableDropsStale(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7114, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	send := func(seq uint32, body string) {
		f := &frame{Command: cmdSendUnreliable, Sequence: seq, Payload: []byte(body)}
		client.mu.Lock()
		cp.queue(f)
		client.flush()
		client.mu.Unlock()
	}
	send(2, "new")
	send(1, "stale")

	ev := tn.expect(t, server, types.EventTypeReceive)
	assert.Equal(t, "new", string(ev.Packet.Data()))
	tn.expect(t, server, types.EventTypeNone)
}

func TestEngine_OversizedUnreliableSentReliably(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7115, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	big := bytes.Repeat([]byte{7}, memnet.DefaultMTU+1)

	client.mu.Lock()
	require.NoError(t, client.send(cp, 0, newPacket(big, 0)))
	assert.Equal(t, cmdSendReliable, cp.outgoing[len(cp.outgoing)-1].Command)
	require.NoError(t, client.send(cp, 0, newPacket(big, types.FlagUnreliableFragment)))
	assert.Equal(t, cmdSendUnreliable, cp.outgoing[len(cp.outgoing)-1].Command)
	client.mu.Unlock()

	tn.engine.HostFlush(client)
	for i := 0; i < 2; i++ {
		ev := tn.expect(t, server, types.EventTypeReceive)
		assert.Equal(t, big, ev.Packet.Data())
	}
}

func TestEngine_Broadcast(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7116, 8)
	c1 := tn.host(t, nil, 1)
	c2 := tn.host(t, nil, 1)
	tn.connectPair(t, c1, server, 1, 0)
	tn.connectPair(t, c2, server, 1, 0)

	pkt, err := tn.engine.PacketCreate([]byte("all"), types.FlagReliable)
	require.NoError(t, err)
	tn.engine.HostBroadcast(server, 0, pkt)
	assert.True(t, pkt.(*Packet).Destroyed())
	tn.engine.HostFlush(server)

	for _, c := range []*Host{c1, c2} {
		ev := tn.expect(t, c, types.EventTypeReceive)
		assert.Equal(t, []byte("all"), ev.Packet.Data())
	}
}

func TestEngine_Compression(t *testing.T) {
	cfg := testConfig()
	cfg.Compress = true
	cfg.CompressThreshold = 16
	tn := newTestNet(t, cfg)
	server := tn.server(t, 7117, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	payload := bytes.Repeat([]byte("z"), 4096)
	client.ResetTotalSentData()

	pkt, err := tn.engine.PacketCreate(payload, types.FlagReliable)
	require.NoError(t, err)
	require.NoError(t, tn.engine.PeerSend(cp, 0, pkt))
	tn.engine.HostFlush(client)

	assert.Less(t, client.TotalSentData(), uint32(len(payload)))
	ev := tn.expect(t, server, types.EventTypeReceive)
	assert.Equal(t, payload, ev.Packet.Data())
}

func TestEngine_Bandwidth(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7118, 8)
	raw, err := tn.engine.HostCreate(nil, 1, 1, 0, 1000)
	require.NoError(t, err)
	client := raw.(*Host)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	for i := 0; i < 2; i++ {
		pkt, err := tn.engine.PacketCreate(make([]byte, 600), types.FlagReliable)
		require.NoError(t, err)
		require.NoError(t, tn.engine.PeerSend(cp, 0, pkt))
	}
	tn.engine.HostFlush(client)

	tn.expect(t, server, types.EventTypeReceive)
	tn.expect(t, server, types.EventTypeNone)

	// 令牌恢复后发送剩余数据
	tn.clock.Add(time.Second)
	tn.engine.HostFlush(client)
	tn.expect(t, server, types.EventTypeReceive)
}

// ============================================================================
//                              断开
// ============================================================================

func TestEngine_Disconnect(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7120, 8)
	client := tn.host(t, nil, 1)
	cp, sp := tn.connectPair(t, client, server, 1, 0)

	tn.engine.PeerDisconnect(cp, 42)
	assert.Equal(t, types.PeerStateDisconnecting, cp.State())
	assert.Equal(t, 0, client.ConnectedPeers())

	tn.expect(t, client, types.EventTypeNone)

	ev := tn.expect(t, server, types.EventTypeDisconnect)
	assert.Same(t, sp, ev.Peer)
	assert.Equal(t, uint32(42), ev.Data)
	assert.Equal(t, types.PeerStateDisconnected, sp.State())
	assert.Equal(t, 0, server.ConnectedPeers())

	ev = tn.expect(t, client, types.EventTypeDisconnect)
	assert.Same(t, cp, ev.Peer)
	assert.Zero(t, ev.Data, "本端发起的断开不携带用户数据")
	assert.Equal(t, types.PeerStateDisconnected, cp.State())

	// 重复断开无副作用
	tn.engine.PeerDisconnect(cp, 0)
	tn.expect(t, client, types.EventTypeNone)
}

func TestEngine_DisconnectNow(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7121, 8)
	client := tn.host(t, nil, 1)
	cp, sp := tn.connectPair(t, client, server, 1, 0)

	tn.engine.PeerDisconnectNow(cp, 7)
	assert.Equal(t, types.PeerStateDisconnected, cp.State())
	tn.expect(t, client, types.EventTypeNone)

	ev := tn.expect(t, server, types.EventTypeDisconnect)
	assert.Same(t, sp, ev.Peer)
	assert.Equal(t, uint32(7), ev.Data)
}

func TestEngine_DisconnectLater(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7122, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	pkt, err := tn.engine.PacketCreate([]byte("last words"), types.FlagReliable)
	require.NoError(t, err)
	require.NoError(t, tn.engine.PeerSend(cp, 0, pkt))

	tn.engine.PeerDisconnectLater(cp, 9)
	assert.Equal(t, types.PeerStateDisconnectLater, cp.State())
	assert.Equal(t, 1, client.ConnectedPeers())

	tn.engine.HostFlush(client)
	assert.Equal(t, types.PeerStateDisconnecting, cp.State())

	ev := tn.expect(t, server, types.EventTypeReceive)
	assert.Equal(t, "last words", string(ev.Packet.Data()))
	ev = tn.expect(t, server, types.EventTypeDisconnect)
	assert.Equal(t, uint32(9), ev.Data)

	ev = tn.expect(t, client, types.EventTypeDisconnect)
	assert.Zero(t, ev.Data)
}

func TestEngine_ResponderInitiatedDisconnect(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7124, 8)
	client := tn.host(t, nil, 1)
	cp, sp := tn.connectPair(t, client, server, 1, 11)

	tn.engine.PeerDisconnect(sp, 5)
	tn.expect(t, server, types.EventTypeNone)

	ev := tn.expect(t, client, types.EventTypeDisconnect)
	assert.Same(t, cp, ev.Peer)
	assert.Equal(t, uint32(5), ev.Data)

	ev = tn.expect(t, server, types.EventTypeDisconnect)
	assert.Same(t, sp, ev.Peer)
	assert.Zero(t, ev.Data, "不应沿用对端的连接数据")
	assert.Equal(t, types.PeerStateDisconnected, sp.State())
}

func TestEngine_Reset(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7123, 8)
	client := tn.host(t, nil, 1)
	cp, sp := tn.connectPair(t, client, server, 1, 0)

	// 排队中的接收事件随重置一起丢弃
	pkt, err := tn.engine.PacketCreate([]byte("x"), types.FlagReliable)
	require.NoError(t, err)
	require.NoError(t, tn.engine.PeerSend(sp, 0, pkt))
	tn.engine.HostFlush(server)
	client.mu.Lock()
	require.NoError(t, client.receive())
	client.mu.Unlock()

	tn.engine.PeerReset(cp)
	assert.Equal(t, types.PeerStateDisconnected, cp.State())
	assert.Equal(t, 0, client.ConnectedPeers())
	tn.expect(t, client, types.EventTypeNone)

	// 对端不会收到通知
	tn.expect(t, server, types.EventTypeNone)
	assert.Equal(t, types.PeerStateConnected, sp.State())
}

// ============================================================================
//                              保活与超时
// ============================================================================

func TestEngine_PingRoundTripTime(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7130, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	assert.Equal(t, uint32(defaultRoundTripTime), cp.RoundTripTime())

	tn.engine.PeerPing(cp)
	tn.engine.HostFlush(client)
	tn.clock.Add(40 * time.Millisecond)
	tn.expect(t, server, types.EventTypeNone)
	tn.expect(t, client, types.EventTypeNone)

	// 500 - (500-40)/8 = 443，方差 (443-40)/4 = 100
	assert.Equal(t, uint32(443), cp.RoundTripTime())
	assert.Equal(t, uint32(100), cp.RoundTripTimeVariance())
	assert.Equal(t, uint32(1), cp.PacketsSent())
	assert.Equal(t, uint32(0), cp.PacketsLost())
}

func TestEngine_PeerSettings(t *testing.T) {
	tn := newTestNet(t, testConfig())
	client := tn.host(t, nil, 1)
	raw, err := tn.engine.HostConnect(client, types.Localhost(9), 1, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(500), raw.PingInterval())
	tn.engine.PeerPingInterval(raw, 250)
	assert.Equal(t, uint32(250), raw.PingInterval())
	tn.engine.PeerPingInterval(raw, 0)
	assert.Equal(t, uint32(500), raw.PingInterval(), "0 恢复默认值")

	tn.engine.PeerTimeout(raw, 8, 1000, 2000)
	limit, minimum, maximum := raw.Timeout()
	assert.Equal(t, []uint32{8, 1000, 2000}, []uint32{limit, minimum, maximum})

	tn.engine.PeerTimeout(raw, 0, 0, 0)
	limit, minimum, maximum = raw.Timeout()
	assert.Equal(t, []uint32{32, 5000, 30000}, []uint32{limit, minimum, maximum})
}

func TestEngine_Timeout(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7131, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	tn.engine.PeerPingInterval(cp, 100)
	tn.engine.PeerTimeout(cp, 4, 1000, 5000)
	tn.net.Block(server.Address())

	var ev interfaces.EventRecord
	var elapsed time.Duration
	for elapsed < 6*time.Second && ev.Type == types.EventTypeNone {
		tn.clock.Add(100 * time.Millisecond)
		elapsed += 100 * time.Millisecond
		ev = tn.poll(t, client)
	}

	require.Equal(t, types.EventTypeDisconnect, ev.Type)
	assert.Same(t, cp, ev.Peer)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 5*time.Second, "未应答 ping 达到上限时应早于最长超时断开")
	assert.Equal(t, types.PeerStateDisconnected, cp.State())
}

func TestEngine_PacketLossEpoch(t *testing.T) {
	tn := newTestNet(t, testConfig())
	server := tn.server(t, 7132, 8)
	client := tn.host(t, nil, 1)
	cp, _ := tn.connectPair(t, client, server, 1, 0)

	client.mu.Lock()
	cp.updatePacketLoss(tn.engine.now())
	epoch := cp.packetLossEpoch
	cp.packetsSent = 4
	cp.packetsLost = 2
	client.mu.Unlock()
	require.NotZero(t, epoch)

	tn.clock.Add(packetLossInterval * time.Millisecond)
	client.mu.Lock()
	cp.updatePacketLoss(tn.engine.now())
	client.mu.Unlock()

	// 本周期丢包率 0.5，平均值 (0.5 * 65536) / 8
	assert.Equal(t, uint32(types.PacketLossScale/2/8), cp.PacketLoss())
	assert.Equal(t, uint32(0), cp.PacketsSent())
	assert.Greater(t, cp.PacketLossEpoch(), epoch)
}

// ============================================================================
//                              Service 行为
// ============================================================================

func TestEngine_ServiceWaits(t *testing.T) {
	e := New(memnet.New())
	require.NoError(t, e.Initialize())
	defer e.Deinitialize()

	h, err := e.HostCreate(nil, 1, 1, 0, 0)
	require.NoError(t, err)

	start := time.Now()
	ev, err := e.HostService(h, 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.EventTypeNone, ev.Type)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	start = time.Now()
	_, err = e.HostService(h, 0)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 25*time.Millisecond, "超时为 0 时不阻塞")

	ev, err = e.HostCheckEvents(h)
	require.NoError(t, err)
	assert.Equal(t, types.EventTypeNone, ev.Type)
}

func TestEngine_ServiceAfterDestroy(t *testing.T) {
	tn := newTestNet(t, testConfig())
	h := tn.host(t, nil, 1)
	tn.engine.HostDestroy(h)

	_, err := tn.engine.HostService(h, 0)
	assert.ErrorIs(t, err, ErrHostClosed)
	_, err = tn.engine.HostCheckEvents(h)
	assert.ErrorIs(t, err, ErrHostClosed)
	_, err = tn.engine.HostConnect(h, types.Localhost(1), 1, 0)
	assert.ErrorIs(t, err, ErrHostClosed)

	// 销毁后的 Flush 是空操作
	tn.engine.HostFlush(h)
}

func TestEngine_ServiceWakesOnDestroy(t *testing.T) {
	e := New(memnet.New())
	require.NoError(t, e.Initialize())
	defer e.Deinitialize()

	h, err := e.HostCreate(nil, 1, 1, 0, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := e.HostService(h, 10*time.Second)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	e.HostDestroy(h)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrHostClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("销毁主机后 Service 应返回")
	}
}

func countState(h *Host, state types.PeerState) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, p := range h.peers {
		if p.state == state {
			n++
		}
	}
	return n
}
