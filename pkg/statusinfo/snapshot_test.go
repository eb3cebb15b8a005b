package statusinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptySnapshot(t *testing.T) {
	t.Parallel()

	snap := New().Snapshot()
	require.True(t, snap.Empty())
	require.Nil(t, snap.Threads)
	require.Equal(t, "Operation state(listeners=0,threadStates=[])", snap.String())
}

// TestSnapshotDuringSimpleOperation follows one operation through listener changes.
func TestSnapshotDuringSimpleOperation(t *testing.T) {
	t.Parallel()

	reg := New()
	ctx, th := threadCtx("simple")
	h := reg.StartOperation(ctx, operationName, NoMaxSteps)
	op := Operation{ID: h.ID, Name: operationName, Thread: th, MaxSteps: NoMaxSteps}
	expect := func(listeners, dedicated int) Snapshot {
		return Snapshot{
			Listeners: listeners,
			Threads: []ThreadSnapshot{{
				Thread:     th,
				Operations: []OperationSnapshot{{Operation: op, DedicatedListeners: dedicated}},
			}},
		}
	}

	require.Equal(t, expect(0, 0), reg.Snapshot())

	global := OnAnyThread(func(Operation, ChangeType, int) {})
	reg.AddListener(global)
	require.Equal(t, expect(1, 0), reg.Snapshot())

	require.NoError(t, reg.AddListenerUntilEndOfCurrentOperation(ctx, OnAnyThread(func(Operation, ChangeType, int) {})))
	require.Equal(t, expect(2, 1), reg.Snapshot())

	reg.EndOperation(h.Receipt)
	require.Equal(t, Snapshot{Listeners: 1}, reg.Snapshot())

	reg.RemoveListener(global)
	require.True(t, reg.Snapshot().Empty())
}

// TestSnapshotIsStableWithoutMutation compares two back to back snapshots.
func TestSnapshotIsStableWithoutMutation(t *testing.T) {
	t.Parallel()

	reg := New()
	ctxA, _ := threadCtx("a")
	ctxB, _ := threadCtx("b")
	a := reg.StartOperation(ctxA, "a", 3)
	reg.StartOperation(ctxA, "a.1", NoMaxSteps)
	_, err := reg.StartSubOperation(ctxB, a.Receipt, "b", NoMaxSteps)
	require.NoError(t, err)
	require.NoError(t, reg.UpdateCurrentOperation(ctxB, 2))

	first := reg.Snapshot()
	second := reg.Snapshot()
	require.Equal(t, first, second)
	require.Equal(t, first.String(), second.String())
	require.Equal(t, 3, first.OperationCount())
}

// TestSnapshotOrdersThreadsByID lists threads in creation order.
func TestSnapshotOrdersThreadsByID(t *testing.T) {
	t.Parallel()

	reg := New()
	first := NewThread("first")
	second := NewThread("second")
	reg.StartOperationIn(second, "late", NoMaxSteps)
	reg.StartOperationIn(first, "early", NoMaxSteps)

	snap := reg.Snapshot()
	require.Len(t, snap.Threads, 2)
	require.Equal(t, first, snap.Threads[0].Thread)
	require.Equal(t, second, snap.Threads[1].Thread)

	ts, ok := snap.ThreadByID(second.ID)
	require.True(t, ok)
	require.Equal(t, "late", ts.Operations[0].Operation.Name)
	_, ok = snap.ThreadByID(0)
	require.False(t, ok)
}

// TestSnapshotListsLeafFirst walks one chain innermost to outermost.
func TestSnapshotListsLeafFirst(t *testing.T) {
	t.Parallel()

	reg := New()
	ctx, th := threadCtx("chain")
	reg.StartOperation(ctx, "root", NoMaxSteps)
	reg.StartOperation(ctx, "middle", NoMaxSteps)
	reg.StartOperation(ctx, "leaf", 4)
	require.NoError(t, reg.UpdateCurrentOperation(ctx, 1))

	ts, ok := reg.Snapshot().Thread(th)
	require.True(t, ok)
	names := make([]string, 0, len(ts.Operations))
	for _, os := range ts.Operations {
		names = append(names, os.Operation.Name)
	}
	require.Equal(t, []string{"leaf", "middle", "root"}, names)
	require.Equal(t, 1, ts.Operations[0].Operation.CurrentSteps)
}

// TestSnapshotSplitsChainsAtThreadBoundary keeps a foreign parent on its own thread.
func TestSnapshotSplitsChainsAtThreadBoundary(t *testing.T) {
	t.Parallel()

	reg := New()
	mainCtx, mainThread := threadCtx("main")
	helperCtx, helperThread := threadCtx("helper")
	parent := reg.StartOperation(mainCtx, "parent", NoMaxSteps)
	sub, err := reg.StartSubOperation(helperCtx, parent.Receipt, "sub", NoMaxSteps)
	require.NoError(t, err)
	reg.StartOperation(helperCtx, "sub.child", NoMaxSteps)

	snap := reg.Snapshot()
	mainTS, ok := snap.Thread(mainThread)
	require.True(t, ok)
	require.Len(t, mainTS.Operations, 1)
	require.Equal(t, parent.ID, mainTS.Operations[0].Operation.ID)

	helperTS, ok := snap.Thread(helperThread)
	require.True(t, ok)
	require.Len(t, helperTS.Operations, 2)
	require.Equal(t, "sub.child", helperTS.Operations[0].Operation.Name)
	require.Equal(t, sub.ID, helperTS.Operations[1].Operation.ID)
	require.Equal(t, parent.ID, helperTS.Operations[1].Operation.ParentID)
}

// TestSnapshotCoversMultipleChainsInOneThread includes every operation of a branched thread.
func TestSnapshotCoversMultipleChainsInOneThread(t *testing.T) {
	t.Parallel()

	reg := New()
	ctx, th := threadCtx("branched")
	a := reg.StartOperation(ctx, "A", NoMaxSteps)
	reg.StartOperation(ctx, "B", NoMaxSteps)
	_, err := reg.StartSubOperation(ctx, a.Receipt, "C", NoMaxSteps)
	require.NoError(t, err)
	reg.StartOperationIn(NewThread("unrelated"), "D", NoMaxSteps)

	ts, ok := reg.Snapshot().Thread(th)
	require.True(t, ok)
	names := make([]string, 0, len(ts.Operations))
	for _, os := range ts.Operations {
		names = append(names, os.Operation.Name)
	}
	require.Equal(t, []string{"C", "A", "B"}, names)
}

func TestSnapshotString(t *testing.T) {
	t.Parallel()

	th := Thread{ID: 7, Name: "worker"}
	snap := Snapshot{
		Listeners: 2,
		Threads: []ThreadSnapshot{{
			Thread: th,
			Operations: []OperationSnapshot{{
				Operation:          Operation{ID: "x", Name: "load", Thread: th, MaxSteps: 10, CurrentSteps: 4},
				DedicatedListeners: 1,
			}},
		}},
	}

	require.Equal(t,
		"Operation state(listeners=2,threadStates=[worker#7[load(id=x,thread=worker#7,steps=4/10)(dedicatedListeners=1)]])",
		snap.String(),
	)
}
