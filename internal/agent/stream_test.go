package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfpilot/internal/chat"
	"tfpilot/internal/client"
)

func TestStreamDriverBeginFalseAbortsLaunch(t *testing.T) {
	runner := &fakeRunner{}
	driver := newStreamDriver(runner)
	defer driver.stop()

	var doneCalls int
	ok := driver.start(nil,
		func() bool { return false },
		func(client.TurnEvent) {},
		func([]chat.Step, error) { doneCalls++ },
	)

	// A superseded start never reaches the backend and never reports.
	assert.False(t, ok)
	assert.Equal(t, 0, runner.turnCount())
	assert.Equal(t, 0, doneCalls)
}

func TestStreamDriverSingleFlight(t *testing.T) {
	runner := &fakeRunner{scripts: []turnScript{
		{block: true},
		{steps: []chat.Step{{Text: "second"}}},
	}}
	driver := newStreamDriver(runner)
	defer driver.stop()

	var mu sync.Mutex
	var outcomes []error

	onDone := func(_ []chat.Step, err error) {
		mu.Lock()
		outcomes = append(outcomes, err)
		mu.Unlock()
	}

	ok := driver.start(nil, nil, func(client.TurnEvent) {}, onDone)
	require.True(t, ok)

	// The second start cancels the first and waits for it to wind down
	// before launching, so its outcome is already recorded here.
	ok = driver.start(nil, nil, func(client.TurnEvent) {}, onDone)
	require.True(t, ok)

	mu.Lock()
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0], context.Canceled)
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(outcomes) == 2
	}, 2*time.Second, 2*time.Millisecond)

	mu.Lock()
	assert.NoError(t, outcomes[1])
	mu.Unlock()
	assert.Equal(t, 2, runner.turnCount())
}

func TestStreamDriverStopIdempotent(t *testing.T) {
	runner := &fakeRunner{scripts: []turnScript{{block: true}}}
	driver := newStreamDriver(runner)

	done := make(chan error, 1)
	require.True(t, driver.start(nil, nil,
		func(client.TurnEvent) {},
		func(_ []chat.Step, err error) { done <- err },
	))

	driver.stop()
	driver.stop() // nothing in flight: a no-op

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	default:
		t.Fatal("stop returned before the turn wound down")
	}
}
