package script_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
	"github.com/AntDeM/S7-DB-Simulator/internal/script"
	"github.com/AntDeM/S7-DB-Simulator/internal/store"
)

func nopLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func mustTag(t *testing.T, s string) plc.TypeTag {
	t.Helper()
	tag, err := plc.ParseTypeTag(s)
	require.NoError(t, err)
	return tag
}

func counterStore(t *testing.T) (*store.Store, []plc.DBDef) {
	intTag := mustTag(t, "INT")
	defs := []plc.DBDef{{Number: 1, Fields: []plc.FieldDef{{Name: "Counter", Type: intTag, Offset: 0}}}}
	s, err := store.New(defs, nopLogger())
	require.NoError(t, err)
	return s, defs
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	e := script.New(nopLogger())
	err := e.Load("FROB 1.x = 2")
	require.Error(t, err)
	var pe *script.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseRejectsOrphanEndLoop(t *testing.T) {
	e := script.New(nopLogger())
	err := e.Load("END_LOOP")
	require.Error(t, err)
}

func TestParseRejectsUnclosedLoop(t *testing.T) {
	e := script.New(nopLogger())
	err := e.Load("LOOP 3\nSET 1.Counter = 1")
	require.Error(t, err)
}

func TestStartRejectedWithoutAttach(t *testing.T) {
	e := script.New(nopLogger())
	require.NoError(t, e.Load("SET 1.Counter = 1"))
	err := e.Start(context.Background())
	require.Error(t, err)
}

func TestStartRejectedWithoutCommands(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))
	err := e.Start(context.Background())
	require.Error(t, err)
}

func TestSetWritesThroughStore(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))
	require.NoError(t, e.Load("SET 1.Counter = 42"))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle && e.LastOutcome() == script.StateCompleted
	}, time.Second, 5*time.Millisecond)

	intTag := mustTag(t, "INT")
	v, err := s.Read(1, 0, intTag, nil)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestLoopAndWaitUntilScenario(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))

	src := `
SET 1.Counter = 0
LOOP 3
  SET 1.Counter = 1
  WAIT 5
  SET 1.Counter = 0
END_LOOP
WAIT_UNTIL 1.Counter == 0 TIMEOUT 100
`
	require.NoError(t, e.Load(src))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle && e.LastOutcome() != script.StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, script.StateCompleted, e.LastOutcome())

	intTag := mustTag(t, "INT")
	v, err := s.Read(1, 0, intTag, nil)
	require.NoError(t, err)
	require.Equal(t, 0, v)

	require.Equal(t, []string{"Iteration 1/3", "Iteration 2/3", "Iteration 3/3"}, e.IterationLog())
}

func TestLoopZeroSkipsBody(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))

	require.NoError(t, e.Load("SET 1.Counter = 7\nLOOP 0\nSET 1.Counter = 99\nEND_LOOP"))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle
	}, time.Second, 5*time.Millisecond)

	intTag := mustTag(t, "INT")
	v, err := s.Read(1, 0, intTag, nil)
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Empty(t, e.IterationLog())
}

func TestNestedLoopRunsInnerTimesOuterTimes(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))

	src := `
SET 1.Counter = 0
LOOP 2
  LOOP 3
    SET 1.Counter = 1
  END_LOOP
END_LOOP
`
	require.NoError(t, e.Load(src))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, script.StateCompleted, e.LastOutcome())

	// Inner LOOP 3 logs its own "Iteration i/3" three times per outer
	// pass (6 entries across two passes), plus the outer LOOP 2's own
	// "Iteration i/2" once per pass (2 entries) — 8 total.
	require.Len(t, e.IterationLog(), 8)

	intTag := mustTag(t, "INT")
	v, err := s.Read(1, 0, intTag, nil)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestStopCancelsRun(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))

	require.NoError(t, e.Load("WAIT 5000"))
	require.NoError(t, e.Start(context.Background()))

	time.Sleep(20 * time.Millisecond)
	e.Stop()

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, script.StateStopped, e.LastOutcome())
}

func TestWaitUntilMissingFieldEndsRunWithError(t *testing.T) {
	s, defs := counterStore(t)
	e := script.New(nopLogger())
	e.Attach(s, script.NewDefResolver(defs))

	require.NoError(t, e.Load("WAIT_UNTIL 1.NoSuchField == 1"))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		return e.State() == script.StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, script.StateErrored, e.LastOutcome())
	require.Error(t, e.LastError())
}
