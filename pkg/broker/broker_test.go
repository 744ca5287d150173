package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"codearena/pkg/envelope"
)

func waitEnv(t *testing.T, ch <-chan envelope.Envelope) envelope.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(time.Second):
		t.Fatal("no event dispatched")
		return envelope.Envelope{}
	}
}

func TestDispatchPrefersActionHandlerOverCatchAll(t *testing.T) {
	b := New(nil)
	defer b.Close()

	specific := make(chan envelope.Envelope, 1)
	catchAll := make(chan envelope.Envelope, 1)
	b.On("submission.verdict", func(env envelope.Envelope) { specific <- env })
	b.OnAny(func(env envelope.Envelope) { catchAll <- env })

	b.dispatch(envelope.New("submission.verdict", "submissions"))

	got := waitEnv(t, specific)
	assert.Equal(t, "submission.verdict", got.Action)
	assert.Empty(t, catchAll)
}

func TestDispatchFallsBackToCatchAll(t *testing.T) {
	b := New(nil)
	defer b.Close()

	catchAll := make(chan envelope.Envelope, 1)
	b.OnAny(func(env envelope.Envelope) { catchAll <- env })

	b.dispatch(envelope.New("contest.registration", "contests"))

	got := waitEnv(t, catchAll)
	assert.Equal(t, "contest.registration", got.Action)
}

func TestDispatchWithoutHandlersIsANoOp(t *testing.T) {
	b := New(nil)
	defer b.Close()

	b.dispatch(envelope.New("unhandled", "system"))
}
