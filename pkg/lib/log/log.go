// Package log 提供 go-enet 统一日志接口
//
// 基于 Go 标准库 log/slog 封装。各组件通过 Logger 获取带组件名的
// 懒加载 logger，输出目标和级别可以在运行时切换：
//
//	var logger = log.Logger("enet/host")
//
//	logger.Debug("主机已创建", "peers", 32, "addr", addr)
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// current 当前使用的根 logger
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// SetDefault 替换根 logger
func SetDefault(l *slog.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
}

// Default 返回根 logger
func Default() *slog.Logger {
	return current.Load()
}

// SetOutput 将日志输出重定向到 w（Info 级别）
func SetOutput(w io.Writer) {
	SetOutputWithLevel(w, slog.LevelInfo)
}

// SetOutputWithLevel 同时设置输出目标和级别
//
// 示例：
//
//	file, _ := os.OpenFile("enet.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
//	log.SetOutputWithLevel(file, slog.LevelDebug)
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel 以指定级别重建输出到 stderr 的根 logger
func SetLevel(level slog.Level) {
	SetOutputWithLevel(os.Stderr, level)
}

// Discard 丢弃所有日志，主要用于测试
func Discard() {
	SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从当前根 logger 派生，
// 因此包级变量在 SetOutput 之后也会输出到新的目标。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) logger() *slog.Logger {
	return current.Load().With("component", l.component)
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}

// Enabled 检查给定级别是否会被输出
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return current.Load().Enabled(context.Background(), level)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.logger().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.logger().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.logger().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.logger().Error(msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.logger().With(args...)
}
