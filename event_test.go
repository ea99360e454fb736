package enet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
	"github.com/dep2p/go-enet/tests/mocks"
)

func TestNewEvent(t *testing.T) {
	c, _ := newMockContext(t)
	h, _ := newMockHost(t, c, 2)
	raw := mocks.NewConnectedPeer(Localhost(7000), 2)

	t.Run("无事件", func(t *testing.T) {
		assert.Nil(t, newEvent(h.core, interfaces.EventRecord{}))
	})

	t.Run("连接", func(t *testing.T) {
		ev := newEvent(h.core, interfaces.EventRecord{Type: EventConnect, Peer: raw, Data: 42})
		defer ev.Release()
		assert.Equal(t, EventConnect, ev.Type)
		assert.Equal(t, uint32(42), ev.Data)
		assert.Nil(t, ev.Packet)
		assert.Same(t, raw, ev.Peer.raw)
	})

	t.Run("断开", func(t *testing.T) {
		ev := newEvent(h.core, interfaces.EventRecord{Type: EventDisconnect, Peer: raw, Data: 7})
		defer ev.Release()
		assert.Equal(t, EventDisconnect, ev.Type)
		assert.Equal(t, uint32(7), ev.Data)
	})

	t.Run("接收", func(t *testing.T) {
		pkt := &mocks.MockRawPacket{DataValue: []byte("abc"), FlagsValue: FlagReliable}
		ev := newEvent(h.core, interfaces.EventRecord{
			Type:      EventReceive,
			Peer:      raw,
			ChannelID: 1,
			Packet:    pkt,
			Data:      99,
		})
		defer ev.Release()
		assert.Equal(t, EventReceive, ev.Type)
		assert.Equal(t, uint8(1), ev.ChannelID)
		assert.Zero(t, ev.Data)
		assert.Equal(t, []byte("abc"), ev.Packet.Data())
		assert.Equal(t, FlagReliable, ev.Packet.Flags())
	})
}

func TestNewEvent_ContractViolations(t *testing.T) {
	c, _ := newMockContext(t)
	h, _ := newMockHost(t, c, 2)
	raw := mocks.NewConnectedPeer(Localhost(7000), 2)

	assert.Panics(t, func() {
		newEvent(h.core, interfaces.EventRecord{Type: types.EventType(4), Peer: raw})
	})
	assert.Panics(t, func() {
		newEvent(h.core, interfaces.EventRecord{Type: types.EventType(-1), Peer: raw})
	})
	assert.Panics(t, func() {
		newEvent(h.core, interfaces.EventRecord{Type: EventConnect})
	})
	assert.Panics(t, func() {
		newEvent(h.core, interfaces.EventRecord{Type: EventReceive, Peer: raw})
	})
}

func TestEvent_PeerIsNewHandle(t *testing.T) {
	c, eng := newMockContext(t)
	h, _ := newMockHost(t, c, 2)
	p, raw := connectedPeer(t, h, eng, 2)

	eng.PushEvent(interfaces.EventRecord{Type: EventConnect, Peer: raw})
	ev, err := h.Service(0)
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.NotSame(t, p, ev.Peer)
	assert.True(t, p.Equal(ev.Peer))

	// 事件中的 Peer 独立持有主机引用
	h.Close()
	p.Close()
	assert.Empty(t, eng.HostDestroyCalls())
	assert.Equal(t, PeerStateConnected, ev.Peer.State())

	ev.Release()
	assert.Len(t, eng.HostDestroyCalls(), 1)
}

func TestEvent_ReleaseReturnsPacketOnce(t *testing.T) {
	c, eng := newMockContext(t)
	h, _ := newMockHost(t, c, 2)
	raw := mocks.NewConnectedPeer(Localhost(7000), 2)

	pkt := &mocks.MockRawPacket{DataValue: []byte("abc")}
	eng.PushEvent(interfaces.EventRecord{Type: EventReceive, Peer: raw, Packet: pkt})

	ev, err := h.CheckEvents()
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Contains(t, ev.String(), "len=3")

	ev.Release()
	ev.Release()
	destroys := eng.PacketDestroyCalls()
	require.Len(t, destroys, 1)
	assert.Same(t, pkt, destroys[0])
	assert.Nil(t, ev.Packet.Data())
}
