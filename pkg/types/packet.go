package types

import "strings"

// ============================================================================
//                              PacketFlags - 投递标志
// ============================================================================

// PacketFlags 数据包投递标志集合
//
// 不设置任何标志表示"不可靠、有序"投递。位位置与引擎一致。
type PacketFlags uint32

const (
	// FlagReliable 可靠投递：有序、保证到达、会重传
	FlagReliable PacketFlags = 1 << 0
	// FlagUnsequenced 无序投递：不保证顺序，也不保证到达
	FlagUnsequenced PacketFlags = 1 << 1
	// FlagNoAllocate 引擎直接引用调用方缓冲区而不复制
	FlagNoAllocate PacketFlags = 1 << 2
	// FlagUnreliableFragment 超过 MTU 时允许以不可靠分片发送
	FlagUnreliableFragment PacketFlags = 1 << 3
	// FlagSent 引擎内部标志：数据包已发送
	FlagSent PacketFlags = 1 << 8
)

// UserFlags 调用方可以设置的全部标志
const UserFlags = FlagReliable | FlagUnsequenced | FlagNoAllocate | FlagUnreliableFragment

var flagNames = []struct {
	flag PacketFlags
	name string
}{
	{FlagReliable, "RELIABLE"},
	{FlagUnsequenced, "UNSEQUENCED"},
	{FlagNoAllocate, "NO_ALLOCATE"},
	{FlagUnreliableFragment, "UNRELIABLE_FRAGMENT"},
	{FlagSent, "SENT"},
}

// Has 检查是否包含全部给定标志
func (f PacketFlags) Has(flags PacketFlags) bool {
	return f&flags == flags
}

// IsReliable 是否可靠投递
func (f PacketFlags) IsReliable() bool {
	return f&FlagReliable != 0
}

// IsUnsequenced 是否无序投递
func (f PacketFlags) IsUnsequenced() bool {
	return f&FlagUnsequenced != 0
}

// Valid 检查是否只包含调用方可设置的标志
func (f PacketFlags) Valid() bool {
	return f&^UserFlags == 0
}

// String 返回形如 "RELIABLE|UNSEQUENCED" 的表示
func (f PacketFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, "UNKNOWN")
	}
	return strings.Join(parts, "|")
}
