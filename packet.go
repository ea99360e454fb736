package enet

import (
	"runtime"
	"sync/atomic"

	"github.com/dep2p/go-enet/pkg/interfaces"
)

// ============================================================================
//                              出站数据包
// ============================================================================

// Packet 出站数据包描述
//
// NewPacket 创建的数据包由引擎复制数据，调用后即可复用缓冲区。
// NewPacketNoAllocate 创建的数据包由引擎直接引用缓冲区，调用方必须
// 保证缓冲区在数据包发出前不被修改。
type Packet struct {
	data       []byte
	flags      PacketFlags
	noAllocate bool
}

// NewPacket 创建由引擎复制数据的数据包
func NewPacket(data []byte, flags PacketFlags) Packet {
	return Packet{data: data, flags: flags}
}

// NewPacketNoAllocate 创建由引擎直接引用数据的数据包
func NewPacketNoAllocate(data []byte, flags PacketFlags) Packet {
	return Packet{data: data, flags: flags, noAllocate: true}
}

// Data 数据
func (p Packet) Data() []byte {
	return p.data
}

// Len 数据长度
func (p Packet) Len() int {
	return len(p.data)
}

// Flags 调用方设置的投递标志
func (p Packet) Flags() PacketFlags {
	return p.flags
}

// NoAllocate 是否由引擎直接引用数据
func (p Packet) NoAllocate() bool {
	return p.noAllocate
}

// validate 检查长度和标志
//
// 复制型数据包不接受 FlagNoAllocate，引用型数据包的该标志由内部设置。
func (p Packet) validate(maximum int) error {
	if len(p.data) == 0 {
		return ErrPacketCreateZeroLength
	}
	if len(p.data) > maximum {
		return &PacketSizeError{Size: len(p.data), Maximum: maximum}
	}
	if !p.flags.Valid() || p.flags&FlagNoAllocate != 0 {
		return ErrInvalidPacketFlags
	}
	return nil
}

func (p Packet) engineFlags() PacketFlags {
	if p.noAllocate {
		return p.flags | FlagNoAllocate
	}
	return p.flags
}

// ============================================================================
//                              入站数据包
// ============================================================================

// ReceivedPacket 收到的数据包
//
// 数据归引擎所有，Close 后归还引擎且只归还一次。Data 返回的切片在
// Close 之后不能再使用。
type ReceivedPacket struct {
	ref *packetRef
}

type packetRef struct {
	engine interfaces.Engine
	raw    interfaces.RawPacket
	closed atomic.Bool
}

func (r *packetRef) destroy() bool {
	if r.closed.Swap(true) {
		return false
	}
	r.engine.PacketDestroy(r.raw)
	return true
}

func destroyPacketRef(r *packetRef) {
	r.destroy()
}

func newReceivedPacket(eng interfaces.Engine, raw interfaces.RawPacket) *ReceivedPacket {
	p := &ReceivedPacket{ref: &packetRef{engine: eng, raw: raw}}
	runtime.AddCleanup(p, destroyPacketRef, p.ref)
	return p
}

// Data 数据视图，Close 后返回 nil
func (p *ReceivedPacket) Data() []byte {
	if p.ref.closed.Load() {
		return nil
	}
	defer runtime.KeepAlive(p)
	return p.ref.raw.Data()
}

// Len 数据长度
func (p *ReceivedPacket) Len() int {
	return len(p.Data())
}

// Flags 发送方的投递标志
func (p *ReceivedPacket) Flags() PacketFlags {
	defer runtime.KeepAlive(p)
	return p.ref.raw.Flags()
}

// Close 将数据包归还引擎，重复调用无副作用
func (p *ReceivedPacket) Close() {
	p.ref.destroy()
}
