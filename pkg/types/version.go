package types

import "fmt"

// Version 引擎版本，按 major<<16 | minor<<8 | patch 编码
type Version uint32

// NewVersion 创建版本
func NewVersion(major, minor, patch uint32) Version {
	return Version((major&0xff)<<16 | (minor&0xff)<<8 | patch&0xff)
}

// Major 主版本号
func (v Version) Major() uint32 {
	return (uint32(v) >> 16) & 0xff
}

// Minor 次版本号
func (v Version) Minor() uint32 {
	return (uint32(v) >> 8) & 0xff
}

// Patch 修订号
func (v Version) Patch() uint32 {
	return uint32(v) & 0xff
}

// String 返回 "major.minor.patch"
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
