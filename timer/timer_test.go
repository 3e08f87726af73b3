package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmr, err := New()
	require.NoError(t, err)
	require.NotNil(t, tmr)
}

func TestStopMeasuresElapsed(t *testing.T) {
	tmr, err := New()
	require.NoError(t, err)

	tmr.Start()
	time.Sleep(10 * time.Millisecond)
	elapsed := tmr.Stop()

	assert.GreaterOrEqual(t, elapsed, 0.010)
	assert.Less(t, elapsed, 5.0, "sleep-sized interval, not wall-clock drift")
}

func TestStopNsMatchesSeconds(t *testing.T) {
	tmr, err := New()
	require.NoError(t, err)

	tmr.Start()
	time.Sleep(time.Millisecond)
	ns := tmr.StopNs()

	assert.GreaterOrEqual(t, ns, 1e6)
}
