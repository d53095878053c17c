package promptscore_test

import (
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()

		bus := promptscore.NewBus()
		var a, b []promptscore.EventType
		bus.Subscribe(func(e promptscore.Event) { a = append(a, e.Type) })
		bus.Subscribe(func(e promptscore.Event) { b = append(b, e.Type) })

		bus.Publish(promptscore.Event{Type: promptscore.EventStepChanged, Step: promptscore.StepTest})

		assert.Equal(t, []promptscore.EventType{promptscore.EventStepChanged}, a)
		assert.Equal(t, []promptscore.EventType{promptscore.EventStepChanged}, b)
	})

	t.Run("stamps events without a timestamp", func(t *testing.T) {
		t.Parallel()

		bus := promptscore.NewBus()
		var got promptscore.Event
		bus.Subscribe(func(e promptscore.Event) { got = e })

		bus.Publish(promptscore.Event{Type: promptscore.EventSessionReset})

		assert.False(t, got.Timestamp.IsZero())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		t.Parallel()

		bus := promptscore.NewBus()
		count := 0
		unsubscribe := bus.Subscribe(func(promptscore.Event) { count++ })

		bus.Publish(promptscore.Event{Type: promptscore.EventHistoryCleared})
		unsubscribe()
		bus.Publish(promptscore.Event{Type: promptscore.EventHistoryCleared})

		assert.Equal(t, 1, count)
	})

	t.Run("nil bus drops events", func(t *testing.T) {
		t.Parallel()

		var bus *promptscore.Bus
		assert.NotPanics(t, func() {
			bus.Publish(promptscore.Event{Type: promptscore.EventSessionStarted})
		})
	})
}
