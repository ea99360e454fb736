package enet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/tests/mocks"
)

// 根包测试共享进程内的会话标志，不能并行执行。

// newMockContext 创建基于 MockEngine 的会话
//
// 测试结束时关闭会话，并检查所有句柄都已释放。
func newMockContext(t *testing.T) (*Context, *mocks.MockEngine) {
	t.Helper()
	eng := mocks.NewMockEngine()
	c, err := Initialize(WithEngine(eng))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		assert.False(t, alive.Load(), "句柄未全部释放")
	})
	return c, eng
}

// newMockHost 创建主机并返回底层 MockRawHost
func newMockHost(t *testing.T, c *Context, peerCount uint32, opts ...HostOption) (*Host, *mocks.MockRawHost) {
	t.Helper()
	h, err := c.CreateHost(peerCount, opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h, h.core.raw.(*mocks.MockRawHost)
}

// ============================================================================
//                              Initialize
// ============================================================================

func TestInitialize_OnlyOneLiveContext(t *testing.T) {
	eng := mocks.NewMockEngine()
	c, err := Initialize(WithEngine(eng))
	require.NoError(t, err)
	assert.True(t, alive.Load())

	_, err = Initialize(WithEngine(mocks.NewMockEngine()))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	c.Close()
	assert.False(t, alive.Load())
	assert.Equal(t, 1, eng.DeinitializeCalls())

	// 完全释放后可以重新初始化
	c2, err := Initialize(WithEngine(mocks.NewMockEngine()))
	require.NoError(t, err)
	c2.Close()
}

func TestInitialize_EngineFailure(t *testing.T) {
	cause := errors.New("socket layer unavailable")
	eng := mocks.NewMockEngine()
	eng.InitializeFunc = func() error { return cause }

	_, err := Initialize(WithEngine(eng))
	assert.ErrorIs(t, err, ErrEngineInit)
	assert.ErrorIs(t, err, cause)
	assert.False(t, alive.Load())
	assert.Zero(t, eng.DeinitializeCalls())

	c, err := Initialize(WithEngine(mocks.NewMockEngine()))
	require.NoError(t, err)
	c.Close()
}

func TestInitialize_InvalidOptions(t *testing.T) {
	_, err := Initialize(WithEngine(nil))
	assert.Error(t, err)

	_, err = Initialize(WithConfig(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Host.PeerCount = 0
	eng := mocks.NewMockEngine()
	_, err = Initialize(WithConfig(cfg), WithEngine(eng))
	assert.Error(t, err)
	assert.Zero(t, eng.InitializeCalls())
	assert.False(t, alive.Load())
}

func TestContext_CloseIdempotent(t *testing.T) {
	eng := mocks.NewMockEngine()
	c, err := Initialize(WithEngine(eng))
	require.NoError(t, err)

	c.Close()
	c.Close()
	assert.Equal(t, 1, eng.DeinitializeCalls())
}

func TestContext_LinkedVersion(t *testing.T) {
	c, eng := newMockContext(t)
	assert.Equal(t, eng.VersionValue, c.LinkedVersion())
	assert.Equal(t, "1.3.18", c.LinkedVersion().String())
}

func TestContext_HostKeepsContextAlive(t *testing.T) {
	eng := mocks.NewMockEngine()
	c, err := Initialize(WithEngine(eng))
	require.NoError(t, err)

	h, err := c.CreateHost(4)
	require.NoError(t, err)

	c.Close()
	assert.Zero(t, eng.DeinitializeCalls())
	assert.True(t, alive.Load())

	_, err = Initialize(WithEngine(mocks.NewMockEngine()))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	// 已关闭的 Context 不能再创建主机
	_, err = c.CreateHost(4)
	assert.ErrorIs(t, err, ErrContextClosed)

	h.Close()
	assert.Len(t, eng.HostDestroyCalls(), 1)
	assert.Equal(t, 1, eng.DeinitializeCalls())
	assert.False(t, alive.Load())
}

// ============================================================================
//                              CreateHost
// ============================================================================

func TestCreateHost_TooManyPeers(t *testing.T) {
	c, eng := newMockContext(t)

	for _, n := range []uint32{MaxPeers + 1, MaxPeers * 2, ^uint32(0)} {
		_, err := c.CreateHost(n)
		require.ErrorIs(t, err, ErrTooManyPeers)

		var tooMany *TooManyPeersError
		require.ErrorAs(t, err, &tooMany)
		assert.Equal(t, n, tooMany.Count)
	}
	assert.Empty(t, eng.HostCreateCalls())
}

func TestCreateHost_TooManyChannels(t *testing.T) {
	c, eng := newMockContext(t)

	_, err := c.CreateHost(4, WithChannelLimit(MaxChannelCount+1))
	require.ErrorIs(t, err, ErrTooManyChannels)

	var tooMany *TooManyChannelsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, uint32(MaxChannelCount+1), tooMany.Count)
	assert.Empty(t, eng.HostCreateCalls())
}

func TestCreateHost_Limits(t *testing.T) {
	c, eng := newMockContext(t)

	_, _ = newMockHost(t, c, MaxPeers, WithChannelLimit(MaxChannelCount))
	calls := eng.HostCreateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, MaxPeers, calls[0].PeerCount)
	assert.Equal(t, MaxChannelCount, calls[0].ChannelLimit)
}

func TestCreateHost_EngineFailure(t *testing.T) {
	c, eng := newMockContext(t)

	cause := errors.New("bind: address in use")
	eng.HostCreateFunc = func(*Address, int, int, uint32, uint32) (interfaces.RawHost, error) {
		return nil, cause
	}
	_, err := c.CreateHost(4)
	assert.ErrorIs(t, err, ErrReturnedNull)
	assert.ErrorIs(t, err, cause)

	eng.HostCreateFunc = func(*Address, int, int, uint32, uint32) (interfaces.RawHost, error) {
		return nil, nil
	}
	_, err = c.CreateHost(4)
	assert.ErrorIs(t, err, ErrReturnedNull)
}

func TestCreateHost_ClientAndServer(t *testing.T) {
	c, eng := newMockContext(t)

	client, err := c.CreateClientHost(1, 1000, 2000)
	require.NoError(t, err)
	defer client.Close()

	server, err := c.CreateServerHost(Localhost(7000), 32, 2, 0, 0)
	require.NoError(t, err)
	defer server.Close()

	calls := eng.HostCreateCalls()
	require.Len(t, calls, 2)

	assert.Nil(t, calls[0].Bind)
	assert.Equal(t, 1, calls[0].PeerCount)
	assert.Zero(t, calls[0].ChannelLimit)
	assert.Equal(t, uint32(1000), calls[0].IncomingBandwidth)
	assert.Equal(t, uint32(2000), calls[0].OutgoingBandwidth)

	require.NotNil(t, calls[1].Bind)
	assert.Equal(t, Localhost(7000), *calls[1].Bind)
	assert.Equal(t, 32, calls[1].PeerCount)
	assert.Equal(t, 2, calls[1].ChannelLimit)
	assert.Equal(t, Localhost(7000), server.Address())
}

func TestCreateHostFromConfig(t *testing.T) {
	c, eng := newMockContext(t)

	hc := config.DefaultHostConfig()
	h, err := c.CreateHostFromConfig(hc)
	require.NoError(t, err)
	h.Close()

	hc.ListenAddr = "127.0.0.1:7001"
	h, err = c.CreateHostFromConfig(hc)
	require.NoError(t, err)
	h.Close()

	hc.ListenAddr = "not-an-address"
	_, err = c.CreateHostFromConfig(hc)
	assert.Error(t, err)

	calls := eng.HostCreateCalls()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].Bind)
	assert.Equal(t, 32, calls[0].PeerCount)
	assert.Equal(t, 2, calls[0].ChannelLimit)
	require.NotNil(t, calls[1].Bind)
	assert.Equal(t, uint16(7001), calls[1].Bind.Port())
}

func TestContext_ResolveAddress(t *testing.T) {
	c, _ := newMockContext(t)

	addr, err := c.ResolveAddress(context.Background(), "10.1.2.3", 7000)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3:7000", addr.String())
}
