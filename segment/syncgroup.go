package segment

// syncGroup tracks which member fades have arrived at their extreme. Once
// every member waits, the lowest-indexed member raises the release latch;
// it stays up until the last waiting member has proceeded, so members whose
// fade tick runs later in the same update period are released atomically
// with the rest.
type syncGroup struct {
	members  map[int]struct{}
	waiting  map[int]struct{}
	released bool
}

func (e *Engine) group(id int) *syncGroup {
	if id == 0 {
		return nil
	}
	return e.groups[id]
}

func (e *Engine) groupJoin(groupID, segID int) {
	if groupID == 0 || segID < 0 {
		return
	}
	g := e.groups[groupID]
	if g == nil {
		g = &syncGroup{
			members: make(map[int]struct{}),
			waiting: make(map[int]struct{}),
		}
		e.groups[groupID] = g
	}
	g.members[segID] = struct{}{}
}

func (e *Engine) groupLeave(groupID, segID int) {
	g := e.group(groupID)
	if g == nil {
		return
	}
	delete(g.members, segID)
	delete(g.waiting, segID)
	if len(g.members) == 0 {
		delete(e.groups, groupID)
	}
}

func (g *syncGroup) arrive(segID int) {
	g.waiting[segID] = struct{}{}
}

func (g *syncGroup) allWaiting() bool {
	return len(g.members) > 0 && len(g.waiting) == len(g.members)
}

func (g *syncGroup) lowest() int {
	low := -1
	for id := range g.members {
		if low == -1 || id < low {
			low = id
		}
	}
	return low
}

// proceed takes one waiting member past the barrier; the release latch
// drops once the last one has left.
func (g *syncGroup) proceed(segID int) {
	delete(g.waiting, segID)
	if len(g.waiting) == 0 {
		g.released = false
	}
}

// GroupFadeDone reports whether every member fade of a sync group has
// completed. An unknown or empty group reads as not done.
func (e *Engine) GroupFadeDone(groupID int) bool {
	g := e.group(groupID)
	if g == nil || len(g.members) == 0 {
		return false
	}
	for id := range g.members {
		if !e.segs[id].fade.done.Completed() {
			return false
		}
	}
	return true
}

// GroupPulseDone stands in for per-group pulse completion, which is not
// tracked: it always reports true for a known group. The sequencer relies
// on this documented limitation.
func (e *Engine) GroupPulseDone(groupID int) bool {
	return e.group(groupID) != nil
}

// GroupMembers returns the segment ids currently in a sync group.
func (e *Engine) GroupMembers(groupID int) []int {
	g := e.group(groupID)
	if g == nil {
		return nil
	}
	out := make([]int, 0, len(g.members))
	for id := range g.members {
		out = append(out, id)
	}
	return out
}
