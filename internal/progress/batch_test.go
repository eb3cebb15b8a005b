package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

func TestBatcherFullAtLimit(t *testing.T) {
	t.Parallel()

	b := newBatcher(2, time.Minute)
	require.Nil(t, b.due())
	require.False(t, b.add(sampleEvent(statusinfo.Began)))
	require.NotNil(t, b.due())
	require.True(t, b.add(sampleEvent(statusinfo.Changed)))

	batch := b.take()
	require.Len(t, batch, 2)
	require.Nil(t, b.due())
	require.Nil(t, b.take())
}

func TestBatcherDueAfterWait(t *testing.T) {
	t.Parallel()

	b := newBatcher(10, 10*time.Millisecond)
	b.add(sampleEvent(statusinfo.Began))

	select {
	case <-b.due():
	case <-time.After(time.Second):
		t.Fatal("batch never became due")
	}
	require.Len(t, b.take(), 1)
}

func TestBatcherTakeDoesNotAlias(t *testing.T) {
	t.Parallel()

	b := newBatcher(4, time.Minute)
	b.add(sampleEvent(statusinfo.Began))
	first := b.take()
	b.add(sampleEvent(statusinfo.Ended))

	require.Equal(t, statusinfo.Began, first[0].Change)
}
