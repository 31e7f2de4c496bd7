package handtrack

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/handremap/pkg/xform"
)

func TestParseKeypoint(t *testing.T) {
	tests := []struct {
		in       string
		expected Keypoint
	}{
		{"wrist", Wrist},
		{"Index_Distal", IndexDistal},
		{"pinky-proximal", LittleProximal},
		{"thumb metacarpal", ThumbMetacarpal},
		{"little_tip", LittleTip},
	}

	for _, tt := range tests {
		got, err := ParseKeypoint(tt.in)
		if err != nil {
			t.Errorf("ParseKeypoint(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseKeypoint(%q) = %s, want %s", tt.in, got, tt.expected)
		}
	}

	if _, err := ParseKeypoint("elbow"); err == nil {
		t.Error("ParseKeypoint(elbow) should fail")
	}
}

func TestKeypoint_StringRoundTrip(t *testing.T) {
	for i := 0; i < KeypointCount; i++ {
		k := Keypoint(i)
		got, err := ParseKeypoint(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKeypoint(%q) = %v, %v", k.String(), got, err)
		}
	}
}

func TestFinger_String(t *testing.T) {
	tests := []struct {
		finger   Finger
		expected string
	}{
		{Thumb, "thumb"},
		{Little, "little"},
		{Finger(9), "finger(9)"},
	}

	for _, tt := range tests {
		if got := tt.finger.String(); got != tt.expected {
			t.Errorf("Finger(%d).String() = %q, want %q", tt.finger, got, tt.expected)
		}
	}

	text, err := Finger(9).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "finger(9)", string(text))
}

func TestFrameFromCurls_FingerCurl(t *testing.T) {
	curls := map[Finger]float64{Thumb: 0.3, Index: 1, Middle: 0.5, Ring: 0}
	f := FrameFromCurls(Left, xform.Identity(), curls)

	for _, finger := range AllFingers() {
		assert.InDelta(t, curls[finger], FingerCurl(&f, finger), 1e-6, "finger %s", finger)
	}

	// A straight index finger lies along +X from its metacarpal.
	straight := FrameFromCurls(Right, xform.Identity(), nil)
	meta, ok := straight.Joint(IndexMetacarpal)
	require.True(t, ok)
	tip, ok := straight.Joint(IndexTip)
	require.True(t, ok)
	dir := tip.Translation.Sub(meta.Translation)
	assert.InDelta(t, 0.150, dir[0], 1e-9)
	assert.InDelta(t, 0, dir[1], 1e-9)
	assert.InDelta(t, 0, dir[2], 1e-9)
}

func TestFrameFromCurls_FollowsWrist(t *testing.T) {
	wrist := xform.New(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	f := FrameFromCurls(Left, wrist, nil)

	palm, ok := f.Joint(Palm)
	require.True(t, ok)
	// +X in the wrist frame becomes +Y after the 90 degree yaw.
	assert.True(t, xform.VecApproxEqual(palm.Translation, mgl64.Vec3{1, 2.045, 3}, 1e-9), "palm at %v", palm.Translation)
}

func TestFrame_UntrackedJoint(t *testing.T) {
	var f Frame
	_, ok := f.Joint(Wrist)
	assert.False(t, ok)
	_, ok = f.Joint(Keypoint(200))
	assert.False(t, ok)
}

func TestStreamSource(t *testing.T) {
	upgrader := websocket.Upgrader{}
	sent := FrameFromCurls(Right, xform.Identity(), map[Finger]float64{Middle: 0.8})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(WireFrame{Hand: "bogus"})
		conn.WriteJSON(FromFrame(sent))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	src, err := DialStream(ctx, url)
	require.NoError(t, err)
	src.MaxAge = 0

	var got Frame
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = src.Frame(Right)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	assert.InDelta(t, 0.8, FingerCurl(&got, Middle), 1e-6)
	_, ok := src.Frame(Left)
	assert.False(t, ok)

	cancel()
	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after cancel")
	}
	assert.Error(t, src.Err())
}

func TestStreamSource_CloseReleasesGoroutines(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		src, err := DialStream(context.Background(), url)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}

	// Server-side handlers wind down asynchronously, so allow a little slack.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond, "goroutines: before %d, now %d", before, runtime.NumGoroutine())
}
