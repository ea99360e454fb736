// Package lib 包含基础设施工具库
//
// 本目录包含与引擎和门面无关的通用工具库：
//
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 引擎契约
//   - types/: 公共类型定义
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import "github.com/dep2p/go-enet/pkg/lib/log"
//
//	var logger = log.Logger("enet/cmd")
package lib
