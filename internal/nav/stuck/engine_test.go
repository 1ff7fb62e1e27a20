package stuck

import "testing"

func TestCheckStuck_NoDestinationIsNoop(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{})
	nav.dest = nil
	e := New(DefaultConfig(), Options{Rand: neverRegress()})

	for i := 0; i < 10000; i++ {
		e.CheckStuck(nav)
		if st := e.State(); st.GlobalTimeout != 0 {
			t.Fatalf("step %d: GlobalTimeout=%d want 0", i, st.GlobalTimeout)
		}
	}
	if nav.mutations() != 0 {
		t.Fatalf("expected no mutations, got stops=%d teleports=%d damage=%d cleared=%d",
			nav.stops, len(nav.teleports), len(nav.damage), len(nav.cleared))
	}
}

func TestCheckStuck_OptOutSkipsEvaluation(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 40})
	nav.optOut = true
	e := New(NewBuilder().WithTicksPerGridUnit(1).WithDamageOnFullStuck(0.5).Build(), Options{Rand: neverRegress()})

	for i := 0; i < 1000; i++ {
		e.CheckStuck(nav)
	}
	if nav.mutations() != 0 {
		t.Fatalf("opted-out agent was mutated: stops=%d damage=%d", nav.stops, len(nav.damage))
	}
	if st := e.State(); st.GlobalTimeout != 0 || st.PreviousDestination != nil {
		t.Fatalf("state advanced for opted-out agent: %+v", st)
	}
}

func TestCheckStuck_ArrivalResetsEverything(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 30})
	e := New(NewBuilder().WithBaseActionDelay(0).Build(), Options{Rand: neverRegress()})

	for i := 0; i < 5; i++ {
		e.CheckStuck(nav)
	}
	if st := e.State(); st.StuckLevel == 0 || st.GlobalTimeout == 0 {
		t.Fatalf("expected escalation before arrival, got %+v", st)
	}

	nav.pos = Vec3{X: 28.5}
	e.CheckStuck(nav)
	st := e.State()
	if st.StuckLevel != 0 || st.GlobalTimeout != 0 || st.ActionDelayRemaining != 0 || st.ProgressStreak != 0 || st.LastActiveNodeIndex != -1 {
		t.Fatalf("arrival did not reset state: %+v", st)
	}
	if st.PreviousDestination != nil {
		t.Fatalf("arrival kept previous destination %+v", *st.PreviousDestination)
	}
}

func TestCheckStuck_FullStuckAtDistance50(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 50})
	log := &eventLog{}
	e := New(DefaultConfig(), Options{Rand: neverRegress(), Observer: log})

	if got := e.TimeoutCap(50); got != 6000 {
		t.Fatalf("TimeoutCap(50)=%v want 6000", got)
	}

	// First observation records the destination; the next 6000 steps count up to the cap.
	for i := 0; i < 6001; i++ {
		e.CheckStuck(nav)
	}
	if n := log.count(EventFullStuck); n != 0 {
		t.Fatalf("full stuck fired early (%d)", n)
	}
	if st := e.State(); st.GlobalTimeout != 6000 {
		t.Fatalf("GlobalTimeout=%d want 6000", st.GlobalTimeout)
	}

	e.CheckStuck(nav)
	if n := log.count(EventFullStuck); n != 1 {
		t.Fatalf("full stuck fired %d times, want 1", n)
	}
	st := e.State()
	if st.GlobalTimeout != 0 || st.PreviousDestination != nil || st.StuckLevel != 0 {
		t.Fatalf("state not reset after full stuck: %+v", st)
	}

	e.CheckStuck(nav)
	if n := log.count(EventFullStuck); n != 1 {
		t.Fatalf("full stuck fired again on the next step")
	}
}

func TestCheckStuck_TimeoutUsesDistanceFloor(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 5})
	log := &eventLog{}
	e := New(NewBuilder().WithTicksPerGridUnit(3).Build(), Options{Rand: neverRegress(), Observer: log})

	// cap = min(6000, 3*max(10, 5)) = 30
	for i := 0; i < 31; i++ {
		e.CheckStuck(nav)
	}
	if log.count(EventFullStuck) != 0 {
		t.Fatalf("fired before the cap")
	}
	e.CheckStuck(nav)
	if log.count(EventFullStuck) != 1 {
		t.Fatalf("expected full stuck on step 32")
	}
}

func TestCheckStuck_ChangingDestinationNeverTimesOut(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 50})
	log := &eventLog{}
	e := New(NewBuilder().WithTicksPerGridUnit(1).Build(), Options{Rand: neverRegress(), Observer: log})

	for i := 0; i < 20000; i++ {
		d := GridPos{X: 50, Z: i % 2}
		nav.dest = &d
		e.CheckStuck(nav)
		if st := e.State(); st.GlobalTimeout != 0 {
			t.Fatalf("step %d: GlobalTimeout=%d", i, st.GlobalTimeout)
		}
	}
	if log.count(EventFullStuck) != 0 {
		t.Fatalf("full stuck fired with a moving destination")
	}
}

func TestCheckStuck_StalledPathSoftResetsAfterBaseDelay(t *testing.T) {
	nav := newFakeNav(Vec3{X: 3.5, Z: 0.5}, GridPos{X: 40})
	nav.path = straightPath(GridPos{}, 10)
	nav.path.active = 3
	e := New(DefaultConfig(), Options{Rand: neverRegress()})

	// Step 1 records node 3, steps 2..201 burn the 200 step delay.
	for i := 0; i < 201; i++ {
		e.CheckStuck(nav)
	}
	if nav.stops != 0 || e.State().StuckLevel != 0 {
		t.Fatalf("acted before the delay ran out: stops=%d level=%d", nav.stops, e.State().StuckLevel)
	}

	e.CheckStuck(nav)
	if nav.stops != 1 {
		t.Fatalf("stops=%d want 1", nav.stops)
	}
	st := e.State()
	if st.StuckLevel != 1 {
		t.Fatalf("level=%d want 1", st.StuckLevel)
	}
	if st.ActionDelayRemaining != softResetDelay {
		t.Fatalf("delay=%d want %d", st.ActionDelayRemaining, softResetDelay)
	}
	if len(nav.teleports) != 0 || len(nav.damage) != 0 {
		t.Fatalf("soft reset must not teleport or damage")
	}
	if _, ok := nav.DesiredDestination(); !ok {
		t.Fatalf("soft reset cleared the destination")
	}
}

func TestCheckStuck_PathDisappearingIsNotAStall(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 40})
	nav.path = straightPath(GridPos{}, 10)
	e := New(NewBuilder().WithBaseActionDelay(5).Build(), Options{Rand: neverRegress()})

	e.CheckStuck(nav)
	nav.path = nil
	e.CheckStuck(nav)
	if st := e.State(); st.ActionDelayRemaining != 5 {
		t.Fatalf("losing the path counted as a stall: delay=%d", st.ActionDelayRemaining)
	}
	e.CheckStuck(nav)
	if st := e.State(); st.ActionDelayRemaining != 4 {
		t.Fatalf("second step without a path should stall: delay=%d", st.ActionDelayRemaining)
	}
}

func TestCheckStuck_ProgressStreakNeedsSixAdvances(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 19})
	e := New(NewBuilder().WithBaseActionDelay(0).Build(), Options{Rand: neverRegress()})

	// Stepping without a path soft-resets right away with no delay.
	e.CheckStuck(nav)
	e.CheckStuck(nav)
	if st := e.State(); st.StuckLevel != 1 {
		t.Fatalf("level=%d want 1", st.StuckLevel)
	}

	nav.path = straightPath(GridPos{}, 20)
	e.CheckStuck(nav)
	for i := 1; i <= 5; i++ {
		nav.path.active = i
		e.CheckStuck(nav)
	}
	st := e.State()
	if st.ProgressStreak != 5 || st.StuckLevel != 1 {
		t.Fatalf("after five advances: streak=%d level=%d", st.ProgressStreak, st.StuckLevel)
	}

	nav.path.active = 6
	e.CheckStuck(nav)
	st = e.State()
	if st.ProgressStreak != 0 || st.StuckLevel != 0 {
		t.Fatalf("sixth advance should reset: streak=%d level=%d", st.ProgressStreak, st.StuckLevel)
	}
	if st.ActionDelayRemaining != 0 {
		t.Fatalf("delay=%d want base delay 0", st.ActionDelayRemaining)
	}
	if st.LastActiveNodeIndex != 6 {
		t.Fatalf("LastActiveNodeIndex=%d want 6", st.LastActiveNodeIndex)
	}
}

func TestCheckStuck_StreakIgnoresPathsToOtherTargets(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 40})
	nav.path = straightPath(GridPos{}, 10) // ends at X=9, far from X=40
	e := New(DefaultConfig(), Options{Rand: neverRegress()})

	e.CheckStuck(nav)
	for i := 1; i < 10; i++ {
		nav.path.active = i
		e.CheckStuck(nav)
		if st := e.State(); st.ProgressStreak != 0 {
			t.Fatalf("streak=%d for an unrelated path", st.ProgressStreak)
		}
	}
}

func TestCheckStuck_BackwardsStepLowersStreak(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 9})
	nav.path = straightPath(GridPos{}, 10)
	nav.path.active = 4
	e := New(DefaultConfig(), Options{Rand: neverRegress()})

	e.CheckStuck(nav)
	nav.path.active = 3
	e.CheckStuck(nav)
	if st := e.State(); st.ProgressStreak != -1 {
		t.Fatalf("streak=%d want -1", st.ProgressStreak)
	}
}

func TestAttachDetach(t *testing.T) {
	nav := newFakeNav(Vec3{}, GridPos{X: 40})
	e := New(NewBuilder().WithBaseActionDelay(0).Build(), Options{Rand: neverRegress()})

	e.CheckStuck(nav)
	e.CheckStuck(nav)
	e.Detach()
	if e.Attached() {
		t.Fatalf("engine still attached")
	}
	stops := nav.stops
	for i := 0; i < 100; i++ {
		e.CheckStuck(nav)
	}
	if nav.stops != stops || e.State().GlobalTimeout != 0 {
		t.Fatalf("detached engine kept supervising")
	}

	e.Attach()
	e.CheckStuck(nav)
	if st := e.State(); st.PreviousDestination == nil || *st.PreviousDestination != (GridPos{X: 40}) {
		t.Fatalf("re-attached engine did not record destination: %+v", st)
	}
}

func TestEvents_CarryCurrentTimeoutAndLevel(t *testing.T) {
	nav := newFakeNav(Vec3{X: 3.5, Z: 0.5}, GridPos{X: 40})
	nav.path = straightPath(GridPos{}, 10)
	nav.path.active = 3
	log := &eventLog{}
	e := New(DefaultConfig(), Options{Rand: neverRegress(), Observer: log})

	for i := 0; i < 202; i++ {
		e.CheckStuck(nav)
	}
	if len(log.events) != 1 {
		t.Fatalf("events=%d want 1", len(log.events))
	}
	ev := log.events[0]
	if ev.Kind != EventSoftReset || ev.Level != 1 || ev.GlobalTimeout != 201 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Destination == nil || *ev.Destination != (GridPos{X: 40}) {
		t.Fatalf("destination=%v", ev.Destination)
	}
}
