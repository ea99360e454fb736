package engine

import (
	"fmt"

	"github.com/klauspost/compress/s2"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-enet/pkg/types"
)

// ============================================================================
//                              协议命令
// ============================================================================

// command 帧命令
type command uint8

const (
	cmdNone command = iota
	cmdConnect
	cmdVerifyConnect
	cmdAcknowledgeConnect
	cmdDisconnect
	cmdAcknowledgeDisconnect
	cmdPing
	cmdPong
	cmdSendReliable
	cmdSendUnreliable
	cmdSendUnsequenced
	cmdCount
)

var commandNames = [...]string{
	cmdNone:                  "NONE",
	cmdConnect:               "CONNECT",
	cmdVerifyConnect:         "VERIFY_CONNECT",
	cmdAcknowledgeConnect:    "ACKNOWLEDGE_CONNECT",
	cmdDisconnect:            "DISCONNECT",
	cmdAcknowledgeDisconnect: "ACKNOWLEDGE_DISCONNECT",
	cmdPing:                  "PING",
	cmdPong:                  "PONG",
	cmdSendReliable:          "SEND_RELIABLE",
	cmdSendUnreliable:        "SEND_UNRELIABLE",
	cmdSendUnsequenced:       "SEND_UNSEQUENCED",
}

func (c command) String() string {
	if c < cmdCount {
		return commandNames[c]
	}
	return fmt.Sprintf("COMMAND(%d)", uint8(c))
}

// ============================================================================
//                              帧
// ============================================================================

// 帧字段编号
const (
	fieldCommand           protowire.Number = 1
	fieldPeerID            protowire.Number = 2
	fieldSenderPeerID      protowire.Number = 3
	fieldConnectID         protowire.Number = 4
	fieldChannelID         protowire.Number = 5
	fieldChannelCount      protowire.Number = 6
	fieldSequence          protowire.Number = 7
	fieldData              protowire.Number = 8
	fieldSentTime          protowire.Number = 9
	fieldIncomingBandwidth protowire.Number = 10
	fieldOutgoingBandwidth protowire.Number = 11
	fieldFlags             protowire.Number = 12
	fieldCompressed        protowire.Number = 13
	fieldPayload           protowire.Number = 14
)

// frame 线路帧
//
// PeerID 是接收方节点表中的下标，CONNECT 帧使用 types.MaxPeerID。
// 除 CONNECT 外，接收方用 ConnectID 校验帧属于当前连接。
type frame struct {
	Command           command
	PeerID            uint16
	SenderPeerID      uint16
	ConnectID         uint32
	ChannelID         uint8
	ChannelCount      uint8
	Sequence          uint32
	Data              uint32
	SentTime          uint32
	IncomingBandwidth uint32
	OutgoingBandwidth uint32
	Flags             types.PacketFlags
	Compressed        bool
	Payload           []byte
}

// reliable 帧是否需要可靠传输
func (f *frame) reliable() bool {
	switch f.Command {
	case cmdSendUnreliable, cmdSendUnsequenced, cmdPing, cmdPong:
		return false
	case cmdDisconnect:
		// 立即断开的 DISCONNECT 不需要确认
		return f.Flags&types.FlagReliable != 0
	default:
		return true
	}
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// marshal 编码帧
func (f *frame) marshal() []byte {
	b := make([]byte, 0, 32+len(f.Payload))
	b = appendVarintField(b, fieldCommand, uint64(f.Command))
	b = appendVarintField(b, fieldPeerID, uint64(f.PeerID))
	b = appendVarintField(b, fieldSenderPeerID, uint64(f.SenderPeerID))
	b = appendVarintField(b, fieldConnectID, uint64(f.ConnectID))
	b = appendVarintField(b, fieldChannelID, uint64(f.ChannelID))
	b = appendVarintField(b, fieldChannelCount, uint64(f.ChannelCount))
	b = appendVarintField(b, fieldSequence, uint64(f.Sequence))
	b = appendVarintField(b, fieldData, uint64(f.Data))
	b = appendVarintField(b, fieldSentTime, uint64(f.SentTime))
	b = appendVarintField(b, fieldIncomingBandwidth, uint64(f.IncomingBandwidth))
	b = appendVarintField(b, fieldOutgoingBandwidth, uint64(f.OutgoingBandwidth))
	b = appendVarintField(b, fieldFlags, uint64(f.Flags))
	if f.Compressed {
		b = appendVarintField(b, fieldCompressed, 1)
	}
	if len(f.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Payload)
	}
	return b
}

// unmarshalFrame 解码帧
//
// 未知字段被跳过。Payload 引用 b，调用方不得复用 b。
func unmarshalFrame(b []byte) (*frame, error) {
	f := &frame{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.Payload = v
			b = b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.setVarint(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if f.Command == cmdNone || f.Command >= cmdCount {
		return nil, fmt.Errorf("%w: command %s", ErrMalformedFrame, f.Command)
	}
	return f, nil
}

func (f *frame) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldCommand:
		f.Command = command(v)
	case fieldPeerID:
		f.PeerID = uint16(v)
	case fieldSenderPeerID:
		f.SenderPeerID = uint16(v)
	case fieldConnectID:
		f.ConnectID = uint32(v)
	case fieldChannelID:
		f.ChannelID = uint8(v)
	case fieldChannelCount:
		f.ChannelCount = uint8(v)
	case fieldSequence:
		f.Sequence = uint32(v)
	case fieldData:
		f.Data = uint32(v)
	case fieldSentTime:
		f.SentTime = uint32(v)
	case fieldIncomingBandwidth:
		f.IncomingBandwidth = uint32(v)
	case fieldOutgoingBandwidth:
		f.OutgoingBandwidth = uint32(v)
	case fieldFlags:
		f.Flags = types.PacketFlags(v)
	case fieldCompressed:
		f.Compressed = v != 0
	}
}

// ============================================================================
//                              载荷压缩
// ============================================================================

// compressPayload 压缩载荷
//
// 只有压缩后更短时才替换载荷。
func (f *frame) compressPayload(threshold int) {
	if len(f.Payload) < threshold || len(f.Payload) == 0 {
		return
	}
	encoded := s2.Encode(nil, f.Payload)
	if len(encoded) < len(f.Payload) {
		f.Payload = encoded
		f.Compressed = true
	}
}

// decompressPayload 解压载荷，解压后长度不得超过 limit
func (f *frame) decompressPayload(limit int) error {
	if !f.Compressed {
		return nil
	}
	n, err := s2.DecodedLen(f.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if n > limit {
		return fmt.Errorf("%w: decoded payload %d bytes", ErrPacketTooLarge, n)
	}
	decoded, err := s2.Decode(nil, f.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	f.Payload = decoded
	f.Compressed = false
	return nil
}
