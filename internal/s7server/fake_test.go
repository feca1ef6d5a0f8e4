package s7server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntDeM/S7-DB-Simulator/internal/s7server"
)

func TestFakeRegisterAndWriteExternal(t *testing.T) {
	f := s7server.NewFake()
	buf := make([]byte, 10)
	require.NoError(t, f.RegisterArea(1, buf))

	require.NoError(t, f.Start(context.Background(), 102))
	require.True(t, f.Started())

	require.NoError(t, f.WriteExternal(1, 2, []byte{0xAA, 0xBB}))
	require.Equal(t, byte(0xAA), f.Area(1)[2])
	require.Equal(t, byte(0xBB), f.Area(1)[3])

	require.NoError(t, f.Stop())
	require.False(t, f.Started())
}

func TestFakeWriteExternalUnregisteredFails(t *testing.T) {
	f := s7server.NewFake()
	err := f.WriteExternal(5, 0, []byte{0x01})
	require.Error(t, err)
}

func TestFakeWriteExternalOutOfRangeFails(t *testing.T) {
	f := s7server.NewFake()
	require.NoError(t, f.RegisterArea(1, make([]byte, 4)))
	err := f.WriteExternal(1, 3, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestFakeEventsCallback(t *testing.T) {
	f := s7server.NewFake()
	require.NoError(t, f.RegisterArea(1, make([]byte, 4)))

	var events []s7server.EventKind
	f.SetEventsCallback(func(e s7server.Event) {
		events = append(events, e.Kind)
	})

	f.SimulateConnect()
	require.NoError(t, f.WriteExternal(1, 0, []byte{0x01}))
	f.SimulateDisconnect()

	require.Equal(t, []s7server.EventKind{
		s7server.EventClientConnected,
		s7server.EventAreaWritten,
		s7server.EventClientDisconnected,
	}, events)
}
