package engine

import (
	"sync/atomic"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

var _ interfaces.RawPacket = (*Packet)(nil)

// Packet 引擎数据包
//
// 带 FlagNoAllocate 创建的数据包直接引用调用方的切片。
type Packet struct {
	data      []byte
	flags     types.PacketFlags
	destroyed atomic.Bool
}

func newPacket(data []byte, flags types.PacketFlags) *Packet {
	if flags&types.FlagNoAllocate == 0 {
		data = append([]byte(nil), data...)
	}
	return &Packet{data: data, flags: flags}
}

// Data 返回数据视图
func (p *Packet) Data() []byte {
	return p.data
}

// Flags 返回投递标志
func (p *Packet) Flags() types.PacketFlags {
	return p.flags
}

// Destroyed 数据包是否已归还引擎
func (p *Packet) Destroyed() bool {
	return p.destroyed.Load()
}

// markSent 数据已编码进帧，数据包不再引用调用方内存
func (p *Packet) markSent() {
	p.flags |= types.FlagSent
}

func (p *Packet) destroy() bool {
	if !p.destroyed.CompareAndSwap(false, true) {
		return false
	}
	p.data = nil
	return true
}
