package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-enet/pkg/types"
)

func TestFrame_MarshalUnmarshal(t *testing.T) {
	in := &frame{
		Command:           cmdSendReliable,
		PeerID:            7,
		SenderPeerID:      types.MaxPeerID,
		ConnectID:         0xdeadbeef,
		ChannelID:         3,
		ChannelCount:      4,
		Sequence:          42,
		Data:              99,
		SentTime:          1234,
		IncomingBandwidth: 1 << 20,
		OutgoingBandwidth: 1 << 19,
		Flags:             types.FlagReliable | types.FlagUnreliableFragment,
		Payload:           []byte("payload"),
	}

	out, err := unmarshalFrame(in.marshal())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrame_ZeroFieldsOmitted(t *testing.T) {
	f := &frame{Command: cmdPing}
	b := f.marshal()
	assert.Len(t, b, 2, "只编码非零字段")

	out, err := unmarshalFrame(b)
	require.NoError(t, err)
	assert.Equal(t, cmdPing, out.Command)
	assert.Nil(t, out.Payload)
}

func TestFrame_SkipsUnknownFields(t *testing.T) {
	b := (&frame{Command: cmdPong, Sequence: 5}).marshal()
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)

	out, err := unmarshalFrame(b)
	require.NoError(t, err)
	assert.Equal(t, cmdPong, out.Command)
	assert.Equal(t, uint32(5), out.Sequence)
}

func TestFrame_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"空帧", nil},
		{"截断的 tag", []byte{0x80}},
		{"截断的 varint", []byte{0x08, 0x80}},
		{"截断的载荷", append(protowire.AppendTag([]byte{0x08, 0x01}, fieldPayload, protowire.BytesType), 10, 1)},
		{"未知命令", protowire.AppendVarint(protowire.AppendTag(nil, fieldCommand, protowire.VarintType), 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unmarshalFrame(tt.data)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestFrame_Reliable(t *testing.T) {
	tests := []struct {
		frame frame
		want  bool
	}{
		{frame{Command: cmdConnect}, true},
		{frame{Command: cmdSendReliable}, true},
		{frame{Command: cmdSendUnreliable}, false},
		{frame{Command: cmdSendUnsequenced}, false},
		{frame{Command: cmdPing}, false},
		{frame{Command: cmdDisconnect, Flags: types.FlagReliable}, true},
		{frame{Command: cmdDisconnect}, false},
	}
	for _, tt := range tests {
		t.Run(tt.frame.Command.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.frame.reliable())
		})
	}
}

func TestFrame_Compression(t *testing.T) {
	payload := bytes.Repeat([]byte("abcd"), 256)

	t.Run("可压缩载荷", func(t *testing.T) {
		f := &frame{Command: cmdSendReliable, Payload: append([]byte(nil), payload...)}
		f.compressPayload(64)
		require.True(t, f.Compressed)
		assert.Less(t, len(f.Payload), len(payload))

		out, err := unmarshalFrame(f.marshal())
		require.NoError(t, err)
		require.NoError(t, out.decompressPayload(len(payload)))
		assert.Equal(t, payload, out.Payload)
		assert.False(t, out.Compressed)
	})

	t.Run("低于阈值不压缩", func(t *testing.T) {
		f := &frame{Command: cmdSendReliable, Payload: []byte("short")}
		f.compressPayload(64)
		assert.False(t, f.Compressed)
	})

	t.Run("解压后超过上限", func(t *testing.T) {
		f := &frame{Command: cmdSendReliable, Payload: append([]byte(nil), payload...)}
		f.compressPayload(64)
		assert.ErrorIs(t, f.decompressPayload(100), ErrPacketTooLarge)
	})

	t.Run("损坏的压缩数据", func(t *testing.T) {
		f := &frame{Command: cmdSendReliable, Compressed: true, Payload: []byte{0xff, 0xff, 0xff}}
		assert.Error(t, f.decompressPayload(1024))
	})
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "VERIFY_CONNECT", cmdVerifyConnect.String())
	assert.Equal(t, "COMMAND(77)", command(77).String())
}
