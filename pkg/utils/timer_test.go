package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTimer_RecordsStagesInOrder(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewStageTimer("diff", WithClock(clock))

	stop := timer.Start("parse")
	clock.Advance(30 * time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, stop())

	stop = timer.Start("diff")
	clock.Advance(5 * time.Millisecond)
	stop()

	stages := timer.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, "parse", stages[0].Name)
	assert.Equal(t, 30*time.Millisecond, stages[0].Duration)
	assert.Equal(t, "diff", stages[1].Name)
	assert.Equal(t, 5*time.Millisecond, timer.Duration("diff"))
	assert.Equal(t, 35*time.Millisecond, timer.Total())
}

func TestStageTimer_StopIsIdempotent(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewStageTimer("x", WithClock(clock))

	timer.Start("a")
	clock.Advance(time.Second)
	first := timer.Stop("a")
	clock.Advance(time.Second)

	assert.Equal(t, first, timer.Stop("a"))
	assert.Equal(t, time.Duration(0), timer.Stop("missing"))
}

func TestStageTimer_Time(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	buf := &bytes.Buffer{}
	timer := NewStageTimer("run", WithClock(clock), WithLogger(NewDefaultLogger(LevelDebug, buf)))

	boom := errors.New("boom")
	err := timer.Time("export", func() error {
		clock.Advance(2 * time.Second)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2*time.Second, timer.Duration("export"))
	assert.Contains(t, buf.String(), "run: export took 2s")
	assert.Contains(t, timer.Summary(), "1. export: 2s")
}
