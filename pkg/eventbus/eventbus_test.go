package eventbus

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replaced struct {
	generation uint64
}

type failed struct {
	err error
}

func newBus(level logrus.Level) (EventBus, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return NewEventPublisher(logrus.NewEntry(log)), buf
}

func TestPublisher_DeliversByType(t *testing.T) {
	t.Parallel()

	bus, _ := newBus(logrus.WarnLevel)
	var got []uint64
	bus.Subscribe(func(e *replaced) { got = append(got, e.generation) })
	bus.Subscribe(func(e *failed) { t.Error("must not receive replaced events") })

	bus.Publish(&replaced{generation: 1})
	bus.Publish(&replaced{generation: 2})
	require.Equal(t, []uint64{1, 2}, got)
}

func TestPublisher_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus, _ := newBus(logrus.WarnLevel)
	calls := 0
	unsubscribe := bus.Subscribe(func(e *replaced) { calls++ })
	bus.Subscribe(func(e *replaced) {})
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Publish(&replaced{})
	unsubscribe()
	unsubscribe()
	bus.Publish(&replaced{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	assert.Zero(t, bus.SubscribersCount())
}

func TestPublisher_PanicRecovery(t *testing.T) {
	t.Parallel()

	bus, buf := newBus(logrus.ErrorLevel)
	called := false
	bus.Subscribe(func(e *replaced) { panic("intentional panic for testing") })
	bus.Subscribe(func(e *replaced) { called = true })

	require.NotPanics(t, func() { bus.Publish(&replaced{}) })
	assert.True(t, called, "later handlers run after a panic")
	assert.True(t, strings.Contains(buf.String(), "intentional panic for testing"))
}

func TestPublisher_NilArgument(t *testing.T) {
	t.Parallel()

	bus, _ := newBus(logrus.WarnLevel)
	got := &failed{}
	bus.Subscribe(func(e *failed) { got = e })
	bus.Publish(nil)
	assert.Nil(t, got)
}

func TestPublisher_SubscribeRejectsNonFunc(t *testing.T) {
	t.Parallel()

	bus, _ := newBus(logrus.WarnLevel)
	require.Panics(t, func() { bus.Subscribe(42) })
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchSignature(func(e *replaced) {}, []interface{}{&replaced{}}))
	assert.False(t, MatchSignature(func(e *replaced) {}, []interface{}{&failed{}}))
	assert.False(t, MatchSignature(func(e *replaced) {}, []interface{}{}))
	assert.False(t, MatchSignature(func(e *replaced) {}, []interface{}{&replaced{}, &replaced{}}))
	assert.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	assert.False(t, MatchSignature(42, []interface{}{1}))
	assert.False(t, MatchSignature(func(n int) {}, []interface{}{nil}))
}
