package stuck

// CheckStuck observes one simulation step of the supervised agent and applies
// whatever intervention its progress calls for.
func (e *Engine) CheckStuck(nav NavigationContext) {
	if !e.attached || nav == nil {
		return
	}

	dest, ok := nav.DesiredDestination()
	if !ok {
		e.resetGlobal()
		return
	}
	if !nav.CanBeSupervisedForStuck() {
		return
	}

	distance := nav.AgentPosition().DistanceTo(dest.Vec())
	if distance < ArrivalDistance {
		e.resetGlobal()
		return
	}

	if e.st.PreviousDestination != nil && *e.st.PreviousDestination == dest {
		e.st.GlobalTimeout++
		if float64(e.st.GlobalTimeout) > e.TimeoutCap(distance) {
			e.fullStuck(nav, dest)
			return
		}
	} else {
		e.resetGlobal()
		e.st.PreviousDestination = &dest
	}

	path := nav.CurrentPath()
	if path == nil || path.IsDone() {
		e.st.LastActiveNodeIndex = -1
		e.st.ProgressStreak = 0
		// Two steps in a row without a live path.
		if !e.st.HadPathLastStep {
			e.tryUnstuck(nav)
		}
	} else {
		active := path.ActiveNodeIndex()
		if active == e.st.LastActiveNodeIndex {
			e.tryUnstuck(nav)
		} else if e.st.LastActiveNodeIndex != -1 && path.TargetPos().DistSq(dest) < pathTargetMatchDistSq {
			if active > e.st.LastActiveNodeIndex {
				e.st.ProgressStreak++
			} else {
				e.st.ProgressStreak--
			}
			if e.st.ProgressStreak > healthyStreak {
				wasStuck := e.st.StuckLevel > 0
				e.resetStuck()
				if wasStuck {
					e.emit(Event{Kind: EventHealthy})
				}
			}
		}
	}

	// The ladder may have stopped navigation, so read the path again.
	path = nav.CurrentPath()
	if path != nil {
		e.st.LastActiveNodeIndex = path.ActiveNodeIndex()
	} else {
		e.st.LastActiveNodeIndex = -1
	}
	e.st.HadPathLastStep = path != nil && !path.IsDone()
}
