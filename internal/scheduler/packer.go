package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
)

type timeBlock struct {
	start time.Time
	end   time.Time
}

func (b timeBlock) length() time.Duration {
	return b.end.Sub(b.start)
}

// packer places tasks first-fit into the free blocks of the working window.
// Every placed task reserves its duration plus the break that follows it.
type packer struct {
	brk    time.Duration
	maxRun time.Duration // 0 disables the consecutive work limit
	forced time.Duration
	free   []timeBlock
	work   []timeBlock // placed non-fixed intervals, sorted by start
}

func newPacker(window timeBlock, blocked []timeBlock, brk, maxRun time.Duration) *packer {
	forced := time.Duration(constants.DefaultForcedBreakMin) * time.Minute
	if brk > forced {
		forced = brk
	}
	return &packer{
		brk:    brk,
		maxRun: maxRun,
		forced: forced,
		free:   findFreeBlocks(window, blocked),
	}
}

// findFreeBlocks subtracts the blocked intervals from the window.
func findFreeBlocks(window timeBlock, blocked []timeBlock) []timeBlock {
	sorted := append([]timeBlock(nil), blocked...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })

	var blocks []timeBlock
	cursor := window.start
	for _, b := range sorted {
		if !b.end.After(cursor) {
			continue
		}
		if !cursor.Before(window.end) {
			break
		}
		if b.start.After(cursor) {
			end := b.start
			if end.After(window.end) {
				end = window.end
			}
			blocks = append(blocks, timeBlock{start: cursor, end: end})
		}
		cursor = b.end
	}
	if cursor.Before(window.end) {
		blocks = append(blocks, timeBlock{start: cursor, end: window.end})
	}
	return blocks
}

// place returns the earliest start for a task of the given length, reserving
// the slot on success.
func (p *packer) place(dur time.Duration) (time.Time, bool) {
	for i := 0; i < len(p.free); i++ {
		block := p.free[i]
		start := block.start
		for {
			if start.Add(dur + p.brk).After(block.end) {
				break
			}
			if p.maxRun > 0 {
				before, lastEnd := p.runBefore(start)
				after := p.runAfter(start.Add(dur))
				if before+dur+after > p.maxRun && before+after > 0 {
					if before > 0 {
						start = lastEnd.Add(p.forced)
						continue
					}
					break
				}
			}
			p.reserve(i, timeBlock{start: start, end: start.Add(dur)})
			return start, true
		}
	}
	return time.Time{}, false
}

func (p *packer) reserve(i int, slot timeBlock) {
	block := p.free[i]
	used := timeBlock{start: slot.start, end: slot.end.Add(p.brk)}

	var split []timeBlock
	if used.start.After(block.start) {
		split = append(split, timeBlock{start: block.start, end: used.start})
	}
	if used.end.Before(block.end) {
		split = append(split, timeBlock{start: used.end, end: block.end})
	}
	rest := append(split, p.free[i+1:]...)
	p.free = append(p.free[:i], rest...)

	idx := sort.Search(len(p.work), func(j int) bool { return p.work[j].start.After(slot.start) })
	p.work = append(p.work, timeBlock{})
	copy(p.work[idx+1:], p.work[idx:])
	p.work[idx] = slot
}

// runBefore sums the chain of placed work ending less than a forced break
// before at. lastEnd is the end of the closest link.
func (p *packer) runBefore(at time.Time) (time.Duration, time.Time) {
	var total time.Duration
	var lastEnd time.Time
	cur := at
	for i := len(p.work) - 1; i >= 0; i-- {
		w := p.work[i]
		if w.end.After(cur) {
			continue
		}
		if cur.Sub(w.end) >= p.forced {
			break
		}
		if lastEnd.IsZero() {
			lastEnd = w.end
		}
		total += w.length()
		cur = w.start
	}
	return total, lastEnd
}

// runAfter sums the chain of placed work starting less than a forced break
// after at.
func (p *packer) runAfter(at time.Time) time.Duration {
	var total time.Duration
	cur := at
	for _, w := range p.work {
		if w.start.Before(cur) {
			continue
		}
		if w.start.Sub(cur) >= p.forced {
			break
		}
		total += w.length()
		cur = w.end
	}
	return total
}

// pack resolves every non-fixed task of ordered that fits. Fixed tasks keep
// their normalized interval and are carved out of the window first.
func pack(req Request, ordered []models.Task, padding time.Duration) []models.Task {
	brk := time.Duration(req.BreakMin)*time.Minute + padding
	window := timeBlock{start: req.WorkingHours.Start, end: req.WorkingHours.End}

	var blocked []timeBlock
	for _, t := range ordered {
		if t.IsFixed && t.IsResolved() {
			blocked = append(blocked, timeBlock{start: *t.Start, end: t.End.Add(brk)})
		}
	}
	for _, b := range req.Busy {
		blocked = append(blocked, timeBlock{start: b.Start, end: b.End})
	}

	p := newPacker(window, blocked, brk, time.Duration(req.MaxConsecutiveMin)*time.Minute)

	out := make([]models.Task, 0, len(ordered))
	for _, t := range ordered {
		if t.IsFixed {
			out = append(out, t.Clone())
			continue
		}
		start, ok := p.place(time.Duration(t.DurationMin) * time.Minute)
		if !ok {
			out = append(out, t.Unplaced())
			continue
		}
		out = append(out, t.Placed(start))
	}
	return out
}
