package enet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-enet/tests/mocks"
)

func TestPacket_Accessors(t *testing.T) {
	p := NewPacket([]byte("abc"), FlagReliable)
	assert.Equal(t, []byte("abc"), p.Data())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, FlagReliable, p.Flags())
	assert.False(t, p.NoAllocate())
	assert.Equal(t, FlagReliable, p.engineFlags())

	n := NewPacketNoAllocate([]byte("abc"), FlagUnsequenced)
	assert.True(t, n.NoAllocate())
	assert.Equal(t, FlagUnsequenced, n.Flags())
	assert.Equal(t, FlagUnsequenced|FlagNoAllocate, n.engineFlags())
}

func TestPacket_Validate(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		wantErr error
	}{
		{"默认投递", NewPacket([]byte("a"), 0), nil},
		{"全部用户标志", NewPacket([]byte("a"), FlagReliable|FlagUnsequenced|FlagUnreliableFragment), nil},
		{"恰好最大值", NewPacket(make([]byte, 16), FlagReliable), nil},
		{"引用型", NewPacketNoAllocate([]byte("a"), FlagReliable), nil},
		{"空", NewPacket(nil, 0), ErrPacketCreateZeroLength},
		{"引用型为空", NewPacketNoAllocate([]byte{}, 0), ErrPacketCreateZeroLength},
		{"超过最大值", NewPacket(make([]byte, 17), 0), ErrPacketExceedsMaximumSize},
		{"引用型超过最大值", NewPacketNoAllocate(make([]byte, 17), 0), ErrPacketExceedsMaximumSize},
		{"复制型带 NO_ALLOCATE", NewPacket([]byte("a"), FlagNoAllocate), ErrInvalidPacketFlags},
		{"引用型显式带 NO_ALLOCATE", NewPacketNoAllocate([]byte("a"), FlagNoAllocate), ErrInvalidPacketFlags},
		{"未知标志", NewPacket([]byte("a"), 1<<20), ErrInvalidPacketFlags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.packet.validate(16)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReceivedPacket(t *testing.T) {
	eng := mocks.NewMockEngine()
	raw := &mocks.MockRawPacket{DataValue: []byte("payload"), FlagsValue: FlagUnsequenced}

	p := newReceivedPacket(eng, raw)
	assert.Equal(t, []byte("payload"), p.Data())
	assert.Equal(t, 7, p.Len())
	assert.Equal(t, FlagUnsequenced, p.Flags())

	p.Close()
	p.Close()
	require.Len(t, eng.PacketDestroyCalls(), 1)
	assert.Nil(t, p.Data())
	assert.Zero(t, p.Len())
}
