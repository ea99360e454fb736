package enet

import (
	"fmt"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

// Event Service 或 CheckEvents 返回的事件
//
//   - EventConnect: Peer 已连接，Data 为对端发起连接时的用户数据
//   - EventDisconnect: Peer 已断开，Data 为对端断开时的用户数据
//   - EventReceive: 在 ChannelID 上收到 Packet
//
// Peer 总是一个新的句柄，与调用方已有的 Peer 指向同一槽位时 Equal 为真。
type Event struct {
	Type      EventType
	Peer      *Peer
	Data      uint32
	ChannelID uint8
	Packet    *ReceivedPacket
}

// Release 释放事件持有的 Peer 和数据包
func (e *Event) Release() {
	if e.Packet != nil {
		e.Packet.Close()
	}
	if e.Peer != nil {
		e.Peer.Close()
	}
}

// newEvent 把引擎事件记录转换为 Event
//
// 事件类型集合是封闭的，其它值说明引擎状态损坏，直接 panic。
func newEvent(host *hostCore, rec interfaces.EventRecord) *Event {
	switch rec.Type {
	case types.EventTypeNone:
		return nil
	case types.EventTypeConnect, types.EventTypeDisconnect, types.EventTypeReceive:
	default:
		panic(fmt.Sprintf("enet: engine reported unknown event type %d", int(rec.Type)))
	}
	if rec.Peer == nil {
		panic(fmt.Sprintf("enet: %s event without peer", rec.Type))
	}
	if rec.Type == types.EventTypeReceive && rec.Packet == nil {
		panic("enet: receive event without packet")
	}

	ev := &Event{
		Type: rec.Type,
		Peer: newPeer(host, rec.Peer),
	}
	switch rec.Type {
	case types.EventTypeConnect, types.EventTypeDisconnect:
		ev.Data = rec.Data
	case types.EventTypeReceive:
		ev.ChannelID = rec.ChannelID
		ev.Packet = newReceivedPacket(host.engine, rec.Packet)
	}
	return ev
}

// String 返回事件的简短描述
func (e *Event) String() string {
	switch e.Type {
	case types.EventTypeReceive:
		return fmt.Sprintf("receive(%s channel=%d len=%d)", e.Peer, e.ChannelID, e.Packet.Len())
	default:
		return fmt.Sprintf("%s(%s data=%d)", e.Type, e.Peer, e.Data)
	}
}
