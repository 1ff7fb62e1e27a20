package stuck

// fullStuck is the last resort once the global timeout is exceeded. Every
// action is gated by config and silently skipped when the world offers no
// valid target.
func (e *Engine) fullStuck(nav NavigationContext, dest GridPos) {
	e.emit(Event{Kind: EventFullStuck})

	if e.cfg.TeleportOnFullStuck {
		if to, ok := teleportTarget(nav, dest); ok {
			nav.TeleportAgentTo(to)
			e.emit(Event{Kind: EventTeleportGoal, Pos: &to})
		}
	}

	if e.cfg.DamageOnFullStuck {
		amount := nav.AgentMaxHealth() * e.cfg.FullStuckDamageFraction
		nav.DamageAgent(amount, DamageCauseStuck)
		e.emit(Event{Kind: EventDamage, Amount: amount})
	}

	if e.cfg.FullStuckBreakRange > 0 {
		if cell, ok := clearAhead(nav, dest, e.cfg.FullStuckBreakRange); ok {
			e.emit(Event{Kind: EventClearCell, Cell: &cell})
		}
	}

	nav.StopNavigation()
	e.resetGlobal()
}

// teleportTarget finds a two-cell-tall gap next to dest.
func teleportTarget(nav NavigationContext, dest GridPos) (Vec3, bool) {
	for _, dir := range Horizontal {
		cell := dest.Relative(dir, 1)
		if nav.IsCellEmpty(cell) && nav.IsCellEmpty(cell.Above(1)) {
			return cell.Center(), true
		}
	}
	return Vec3{}, false
}

// clearAhead walks toward dest from the agent and clears the first blocking
// cell it meets. It returns the cleared cell.
func clearAhead(nav NavigationContext, dest GridPos, rng int) (GridPos, bool) {
	from := nav.AgentPosition().Cell()
	facing := Facing(from, dest)

	for i := 1; i <= rng; i++ {
		cell := from.Relative(facing, i)
		if !nav.IsCellEmpty(cell) || !nav.IsCellEmpty(cell.Above(1)) {
			return clearBlocking(nav, from.Relative(facing, i-1), facing)
		}
	}
	return GridPos{}, false
}

func clearBlocking(nav NavigationContext, start GridPos, facing Direction) (GridPos, bool) {
	candidates := [3]GridPos{
		start.Above(3),
		start.Relative(facing, 1),
		start.Above(1).Relative(facing, 1),
	}
	for _, c := range candidates {
		if !nav.IsCellEmpty(c) {
			nav.ClearCell(c)
			return c, true
		}
	}
	return GridPos{}, false
}
