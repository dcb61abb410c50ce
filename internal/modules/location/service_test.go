// README: Tracker tests (state flow, permission outcomes, teardown).
package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridemap/internal/modules/geo"
	"ridemap/internal/types"
)

// fakeProvider answers permission synchronously and lets the test push
// watch positions by hand.
type fakeProvider struct {
	grant   bool
	permErr error
	fix     RiderPosition
	fixErr  error

	mu      sync.Mutex
	fn      func(RiderPosition)
	sub     *Subscription
	stopped int
}

func (f *fakeProvider) RequestPermission(context.Context) (bool, error) {
	return f.grant, f.permErr
}

func (f *fakeProvider) CurrentFix(context.Context) (RiderPosition, error) {
	return f.fix, f.fixErr
}

func (f *fakeProvider) Watch(_ context.Context, _ WatchConfig, fn func(RiderPosition)) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
	f.sub = NewSubscription(func() {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	})
	return f.sub, nil
}

func (f *fakeProvider) push(p RiderPosition) bool {
	f.mu.Lock()
	sub, fn := f.sub, f.fn
	f.mu.Unlock()
	if sub == nil {
		return false
	}
	return sub.Deliver(fn, p)
}

func (f *fakeProvider) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func testFix(lat, lng float64) RiderPosition {
	return RiderPosition{Coordinate: types.Point{Lat: lat, Lng: lng}, AccuracyM: 5, Timestamp: time.Now()}
}

func TestTrackerCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateUninitialized, StatePermissionRequested, true},
		{StatePermissionRequested, StatePermissionGranted, true},
		{StatePermissionRequested, StatePermissionDenied, true},
		{StatePermissionGranted, StateTracking, true},
		{StateTracking, StateStopped, true},
		{StateUninitialized, StateStopped, true},
		{StatePermissionDenied, StateStopped, true},
		// denial is final
		{StatePermissionDenied, StatePermissionGranted, false},
		{StatePermissionDenied, StateTracking, false},
		// no skipping the permission step
		{StateUninitialized, StateTracking, false},
		{StatePermissionRequested, StateTracking, false},
		// stopped is terminal
		{StateStopped, StateTracking, false},
		{StateStopped, StatePermissionRequested, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTrackerGranted(t *testing.T) {
	p := &fakeProvider{grant: true, fix: testFix(14.6, 121.0)}
	var (
		mu        sync.Mutex
		focuses   []geo.Region
		animates  []time.Duration
		positions []RiderPosition
	)
	hooks := Hooks{
		OnPosition: func(rp RiderPosition) {
			mu.Lock()
			positions = append(positions, rp)
			mu.Unlock()
		},
		OnFocus: func(r geo.Region, d time.Duration) {
			mu.Lock()
			focuses = append(focuses, r)
			animates = append(animates, d)
			mu.Unlock()
		},
	}
	tr := NewTracker(p, DefaultWatchConfig(), geo.DefaultViewport(), hooks)
	if tr.Status() != StatusLoading {
		t.Fatalf("status before start = %s, want loading", tr.Status())
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if tr.State() != StateTracking {
		t.Fatalf("state = %s, want tracking", tr.State())
	}
	if tr.Status() != StatusReady {
		t.Fatalf("status = %s, want ready", tr.Status())
	}
	pos, ok := tr.Position()
	if !ok || pos.Coordinate != p.fix.Coordinate {
		t.Fatalf("position = %+v (%v), want first fix", pos, ok)
	}

	next := testFix(14.61, 121.01)
	if !p.push(next) {
		t.Fatal("watch delivery dropped while tracking")
	}
	pos, _ = tr.Position()
	if pos.Coordinate != next.Coordinate {
		t.Fatalf("position = %+v, want watch update", pos.Coordinate)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(focuses) != 1 {
		t.Fatalf("focus requests = %d, want exactly 1", len(focuses))
	}
	if focuses[0].Center != p.fix.Coordinate || focuses[0].LatDelta != geo.DefaultLatitudeDelta {
		t.Errorf("focus region = %+v", focuses[0])
	}
	if animates[0] != RiderFocusAnimation {
		t.Errorf("focus animation = %v, want %v", animates[0], RiderFocusAnimation)
	}
	if len(positions) != 2 {
		t.Errorf("position callbacks = %d, want 2", len(positions))
	}
}

func TestTrackerDenied(t *testing.T) {
	cases := []struct {
		name string
		p    *fakeProvider
	}{
		{"refused", &fakeProvider{grant: false}},
		{"request failed", &fakeProvider{grant: true, permErr: errors.New("boom")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var msgs []string
			tr := NewTracker(tc.p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{
				OnError: func(msg string) { msgs = append(msgs, msg) },
				OnFocus: func(geo.Region, time.Duration) { t.Error("focus requested after denial") },
			})
			if err := tr.Start(context.Background()); err != nil {
				t.Fatalf("start: %v", err)
			}
			if tr.State() != StatePermissionDenied {
				t.Fatalf("state = %s, want permission_denied", tr.State())
			}
			if tr.Status() != StatusError {
				t.Fatalf("status = %s, want error", tr.Status())
			}
			if tr.ErrMsg() != DeniedMessage {
				t.Fatalf("errMsg = %q", tr.ErrMsg())
			}
			if !errors.Is(tr.Err(), ErrPermissionDenied) {
				t.Fatalf("err = %v, want ErrPermissionDenied", tr.Err())
			}
			if len(msgs) != 1 || msgs[0] != DeniedMessage {
				t.Fatalf("error callbacks = %v", msgs)
			}
			if _, ok := tr.Position(); ok {
				t.Fatal("position published after denial")
			}
			if tc.p.sub != nil {
				t.Fatal("watch opened after denial")
			}
		})
	}
}

func TestTrackerFixFailureStillWatches(t *testing.T) {
	p := &fakeProvider{grant: true, fixErr: errors.New("no fix yet")}
	tr := NewTracker(p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if tr.Status() != StatusLoading {
		t.Fatalf("status = %s, want loading", tr.Status())
	}
	p.push(testFix(14.6, 121))
	if tr.Status() != StatusReady {
		t.Fatalf("status after watch update = %s, want ready", tr.Status())
	}
}

func TestTrackerStop(t *testing.T) {
	p := &fakeProvider{grant: true, fix: testFix(14.6, 121.0)}
	calls := 0
	tr := NewTracker(p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{
		OnPosition: func(RiderPosition) { calls++ },
	})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	tr.Stop()
	tr.Stop()

	if p.stopCount() != 1 {
		t.Fatalf("provider stop count = %d, want 1", p.stopCount())
	}
	if p.push(testFix(15, 122)) {
		t.Fatal("delivery after Stop")
	}
	if calls != 1 {
		t.Fatalf("position callbacks = %d, want 1", calls)
	}
	if _, ok := tr.Position(); ok {
		t.Fatal("position kept after Stop")
	}
	if tr.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", tr.State())
	}
}

func TestTrackerStopBeforeStart(t *testing.T) {
	p := &fakeProvider{grant: true, fix: testFix(14.6, 121.0)}
	tr := NewTracker(p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{})
	tr.Stop()
	if err := tr.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("start after stop = %v, want ErrAlreadyStarted", err)
	}
	if p.sub != nil {
		t.Fatal("watch opened after Stop")
	}
}

func TestTrackerStartTwice(t *testing.T) {
	p := &fakeProvider{grant: true, fix: testFix(14.6, 121.0)}
	tr := NewTracker(p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer tr.Stop()
	if err := tr.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second start = %v, want ErrAlreadyStarted", err)
	}
}

func TestTrackerPublishesThroughDispatch(t *testing.T) {
	cases := []struct {
		name  string
		p     *fakeProvider
		push  bool
		wantN int
	}{
		{"fix and watch update", &fakeProvider{grant: true, fix: testFix(14.6, 121.0)}, true, 2},
		{"denial", &fakeProvider{grant: false}, false, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				mu         sync.Mutex
				inDispatch bool
				dispatched int
				outside    []string
			)
			check := func(what string) {
				mu.Lock()
				defer mu.Unlock()
				if !inDispatch {
					outside = append(outside, what)
				}
			}
			tr := NewTracker(tc.p, DefaultWatchConfig(), geo.DefaultViewport(), Hooks{
				OnPosition: func(RiderPosition) { check("position") },
				OnError:    func(string) { check("error") },
				OnFocus:    func(geo.Region, time.Duration) { check("focus") },
				Dispatch: func(fn func()) {
					mu.Lock()
					inDispatch = true
					dispatched++
					mu.Unlock()
					fn()
					mu.Lock()
					inDispatch = false
					mu.Unlock()
				},
			})
			if err := tr.Start(context.Background()); err != nil {
				t.Fatalf("start: %v", err)
			}
			defer tr.Stop()
			if tc.push && !tc.p.push(testFix(14.61, 121.01)) {
				t.Fatal("watch delivery dropped while tracking")
			}

			mu.Lock()
			defer mu.Unlock()
			if dispatched != tc.wantN {
				t.Errorf("dispatched = %d, want %d", dispatched, tc.wantN)
			}
			if len(outside) != 0 {
				t.Errorf("hooks run outside dispatch: %v", outside)
			}
		})
	}
}
