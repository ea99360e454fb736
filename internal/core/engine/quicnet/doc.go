// Package quicnet 实现基于 QUIC 的数据报网络
//
// quicnet 为引擎提供 interfaces.Network 的生产实现。每个套接字持有一个
// UDP socket 和其上的 quic.Transport，监听和拨号共享同一端口，
// 因此对端看到的源地址与监听地址一致。
//
// # 链路
//
// 每个远端地址对应一条 QUIC 连接（链路）。首次向某个地址发送时异步拨号，
// 拨号完成前的帧在链路发送队列中等待。发送队列不限长度地保存可靠帧，
// 不可靠帧在队列达到 QueueSize 时丢弃。链路两端各自打开一条双向流用于
// 发送可靠帧，读取对端打开的流接收可靠帧：
//
//	┌────────────┐   stream (varint 长度前缀)    ┌────────────┐
//	│  socket A  │ ─────────────────────────────▶ │  socket B  │
//	│            │ ◀───────────────────────────── │            │
//	│            │ ◀──── QUIC datagram ─────────▶ │            │
//	└────────────┘                                └────────────┘
//
// 不可靠帧走 QUIC datagram；超过 MTU 或被 quic-go 拒绝的 datagram
// 改走流发送。
//
// # 证书
//
// 套接字在打开时生成自签名 ed25519 证书，ALPN 为 "enet"。
// 链路只提供传输加密，不验证对端身份。
package quicnet
