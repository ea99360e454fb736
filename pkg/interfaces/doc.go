// Package interfaces 定义 go-enet 的公共契约
//
// 门面层（enet 包）只通过这里定义的窄接口访问引擎：
//   - engine.go  - Engine 引擎操作集合，以及 RawHost / RawPeer / RawPacket 句柄
//   - network.go - Network / Socket 引擎下层的数据报网络
//
// 句柄是指向引擎自有内存的不透明引用，由引擎分配和回收。
// 门面层负责保证句柄在引擎回收之后不再被使用。
//
// # 实现
//
//   - internal/core/engine  - 参考引擎（可插拔网络：quicnet / memnet）
//   - tests/mocks           - 测试用模拟引擎
package interfaces
