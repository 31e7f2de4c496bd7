package retarget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
	"github.com/gwillem/handremap/pkg/skeleton"
	"github.com/gwillem/handremap/pkg/xform"
)

func TestNewDriver(t *testing.T) {
	c, _ := rightHand(t)

	_, err := NewDriver(DriverConfig{Container: c})
	assert.Error(t, err)

	_, err = NewDriver(DriverConfig{Node: NewNode(mapping.UE4DefaultRight, false, false)})
	assert.Error(t, err)

	// Left-hand names never resolve on a right hand.
	_, err = NewDriver(DriverConfig{Node: NewNode(mapping.UE4DefaultLeft, false, false), Container: c})
	assert.True(t, errors.Is(err, ErrNotValid))

	d, err := NewDriver(DriverConfig{Node: NewNode(mapping.UE4DefaultRight, false, false), Container: c})
	require.NoError(t, err)
	assert.Equal(t, 60, d.Hz())
}

func TestDriver_Step(t *testing.T) {
	c, _ := rightHand(t)
	src := handtrack.NewStaticSource()
	d, err := NewDriver(DriverConfig{
		Node:      NewNode(mapping.UE4DefaultRight, false, false),
		Container: c,
		Source:    src,
	})
	require.NoError(t, err)

	s := d.Step()
	assert.ErrorIs(t, s.Error, ErrNoFrame)
	assert.Nil(t, s.Bones)

	src.Set(handtrack.FrameFromCurls(handtrack.Right, xform.Identity(), map[handtrack.Finger]float64{handtrack.Index: 1}))
	s = d.Step()
	require.NoError(t, s.Error)
	assert.Len(t, s.Bones, 16)
	assert.InDelta(t, 1, s.Curls[handtrack.Index], 1e-9)
	assert.InDelta(t, 0, s.Curls[handtrack.Ring], 1e-9)

	assert.Equal(t, s.Timestamp, d.Latest().Timestamp)

	select {
	case got := <-d.States():
		assert.Len(t, got.Bones, 16, "channel holds the newest state")
	default:
		t.Fatal("no state published")
	}
}

func TestDriver_Start(t *testing.T) {
	c, _ := rightHand(t)
	src := handtrack.NewStaticSource(handtrack.FrameFromCurls(handtrack.Right, xform.Identity(), nil))
	d, err := NewDriver(DriverConfig{
		Node:      NewNode(mapping.UE4DefaultRight, true, false),
		Container: c,
		Source:    src,
		Hz:        200,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	select {
	case s := <-d.States():
		require.NoError(t, s.Error)
		assert.Len(t, s.Bones, 15)
		for _, b := range s.Bones {
			assert.NotEqual(t, "hand_r", c.BoneName(b.Index))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver produced no state")
	}

	// A state only comes out of the running loop.
	assert.Error(t, d.Start(ctx), "second Start must fail while running")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}

	var logs []string
	for len(d.Logs()) > 0 {
		logs = append(logs, <-d.Logs())
	}
	assert.NotEmpty(t, logs)
}

func TestDriver_EvaluatesAgainstRefPose(t *testing.T) {
	c, _ := rightHand(t)
	src := handtrack.NewStaticSource(handtrack.FrameFromCurls(handtrack.Right, xform.Identity(), nil))
	d, err := NewDriver(DriverConfig{
		Node:      NewNode(mapping.UE4DefaultRight, true, false),
		Container: c,
		Source:    src,
	})
	require.NoError(t, err)

	ref := skeleton.NewRefPose(c)
	for _, b := range d.Step().Bones {
		cs, ok := ref.ComponentSpace(b.Index)
		require.True(t, ok)
		assert.True(t, cs.ApproxEqual(b.Transform, 1e-9), "bone %s", c.BoneName(b.Index))
	}
}

// flipSource hands out an open hand and a fist on alternate reads.
type flipSource struct {
	mu    sync.Mutex
	reads int
}

func (f *flipSource) Frame(hand handtrack.Hand) (handtrack.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	curl := float64(f.reads % 2)
	f.reads++
	return handtrack.FrameFromCurls(hand, xform.Identity(), map[handtrack.Finger]float64{handtrack.Index: curl}), true
}

func TestDriver_StepReadsOneFrame(t *testing.T) {
	c, _ := rightHand(t)
	src := &flipSource{}
	d, err := NewDriver(DriverConfig{
		Node:      NewNode(mapping.UE4DefaultRight, false, false),
		Container: c,
		Source:    src,
	})
	require.NoError(t, err)

	s := d.Step()
	require.NoError(t, s.Error)
	assert.Equal(t, 1, src.reads)
	assert.InDelta(t, 0, s.Curls[handtrack.Index], 1e-9)

	bones := byName(c, s.Bones)
	assert.InDelta(t, 0, angleBetween(bones["index_01_r"].Rotation, bones["index_03_r"].Rotation), 1e-6,
		"bones must come from the same open hand as the curls")
}
