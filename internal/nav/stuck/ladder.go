package stuck

// tryUnstuck runs one rung of the escalation ladder once the action delay
// has run out.
func (e *Engine) tryUnstuck(nav NavigationContext) {
	if e.st.ActionDelayRemaining > 0 {
		e.st.ActionDelayRemaining--
		return
	}

	if e.st.StuckLevel == 0 {
		e.st.StuckLevel = 1
		e.st.ActionDelayRemaining = softResetDelay
		nav.StopNavigation()
		e.emit(Event{Kind: EventSoftReset})
		return
	}

	e.st.ActionDelayRemaining = e.cfg.BaseActionDelay
	if e.st.StuckLevel == 2 && e.cfg.TeleportSkipSteps > 0 && e.st.HadPathLastStep {
		if e.skipAhead(nav) {
			e.st.ActionDelayRemaining = skipAheadDelay
		}
	}

	e.chanceStuckLevel()

	if e.st.StuckLevel >= MaxStuckLevel {
		e.st.StuckLevel = MaxStuckLevel
		e.emit(Event{Kind: EventLadderCeiling})
		e.resetStuck()
	}
}

func (e *Engine) skipAhead(nav NavigationContext) bool {
	path := nav.CurrentPath()
	if path == nil || path.NodeCount() == 0 {
		return false
	}
	idx := min(path.ActiveNodeIndex()+e.cfg.TeleportSkipSteps, path.NodeCount()-1)
	if idx < 0 {
		return false
	}
	to := path.NodeAt(idx).Center()
	nav.TeleportAgentTo(to)
	e.emit(Event{Kind: EventSkipAhead, Pos: &to})
	return true
}

// chanceStuckLevel climbs one level and, above level 1, falls back two
// levels on a one-in-six roll.
func (e *Engine) chanceStuckLevel() {
	e.st.StuckLevel++
	if e.st.StuckLevel > 1 && e.rng.Intn(6) == 0 {
		e.st.StuckLevel -= 2
		e.emit(Event{Kind: EventRegress})
		return
	}
	e.emit(Event{Kind: EventEscalate})
}
