// Package enet 提供可靠 UDP 引擎之上的安全对象模型
//
// enet 把引擎的主机、节点和事件包装为 Go 值，负责句柄的生命周期、
// 参数校验和事件派发；可靠性、排序、分片和套接字 I/O 由引擎完成。
//
// # 核心概念
//
//   - Context: 进程内唯一的引擎会话
//   - Host: 一个本地会话（客户端或服务端），持有 0..N 个连接
//   - Peer: 主机节点表中一个槽位的句柄
//   - Event: Service 返回的 Connect / Disconnect / Receive 通知
//   - Packet / ReceivedPacket: 发出和收到的数据包
//
// # 快速开始
//
//	ctx, err := enet.Initialize()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	host, err := ctx.CreateClientHost(1, 0, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	peer, err := host.Connect(enet.Localhost(9001), 2, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer peer.Close()
//
//	for {
//	    ev, err := host.Service(time.Second)
//	    if err != nil || ev == nil {
//	        continue
//	    }
//	    switch ev.Type {
//	    case enet.EventConnect:
//	        host.Flush()
//	        peer.Send(0, enet.NewPacket([]byte("hi"), enet.FlagReliable))
//	    case enet.EventReceive:
//	        fmt.Println(string(ev.Packet.Data()))
//	    }
//	    ev.Release()
//	}
//
// # 生命周期
//
// 句柄之间是共享所有权关系：
//
//	┌─────────┐  引用   ┌──────────┐  引用   ┌─────────┐
//	│  Peer   │ ──────▶ │   Host   │ ──────▶ │ Context │
//	│ (Event) │         │ 守卫     │         │ 守卫    │
//	└─────────┘         └──────────┘         └─────────┘
//
// 引擎主机在最后一个 Host / Peer 句柄关闭时销毁；引擎在 Context 和
// 它创建的所有主机都关闭后才反初始化。未关闭的句柄被垃圾回收时，
// runtime.AddCleanup 会补做释放。
//
// # 握手
//
// 发起方在收到 Connect 事件后需要再调用一次 Flush 或 Service，
// 最终的握手确认才会发出，对端随后才会看到自己的 Connect 事件。
//
// # 并发
//
// 单个 Host 及其 Peer 不支持并发使用；Service 是唯一的阻塞点。
// 中止服务循环请在两次 Service 调用之间检查调用方自己的标志。
//
// # 文件组织
//
//   - context.go: Initialize 与 Context
//   - host.go: Host 与服务循环
//   - peer.go: Peer 与发送校验
//   - event.go: 事件构造
//   - packet.go: Packet / ReceivedPacket
//   - address.go: 地址与主机名解析
//   - lifetime.go: 共享所有权守卫
//   - module.go: Fx 模块
package enet
