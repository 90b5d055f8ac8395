package product

import (
	"time"

	"github.com/mcclellann/repayplan/pkg/calendar"
)

// Timeline returns the ordered repayment dates of the product. The last
// entry is always the end date. The result is computed once and cached until
// the next forced validation; callers get their own copy.
func (p *Product) Timeline() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timeline == nil && p.initialized {
		p.timeline = p.generateTimeline()
	}
	out := make([]time.Time, len(p.timeline))
	copy(out, p.timeline)
	return out
}

func (p *Product) generateTimeline() []time.Time {
	var timeline []time.Time
	switch p.cfg.RepayMode.Family() {
	case FamilyNatural:
		timeline = p.naturalTimeline()
	case FamilyRolling:
		timeline = p.rollingTimeline()
	case FamilyEndDate:
		timeline = []time.Time{p.endDate}
	case FamilyCustomDate:
		timeline = p.customDateTimeline()
	default:
		return nil
	}

	if n := len(timeline); n == 0 || !timeline[n-1].Equal(p.endDate) {
		timeline = append(timeline, p.endDate)
	}
	return timeline
}

func (p *Product) naturalTimeline() []time.Time {
	var timeline []time.Time
	mode := p.cfg.RepayMode
	for cursor := p.cfg.FoundDate; !cursor.After(p.endDate); cursor = calendar.AddDays(cursor, 1) {
		if (mode.isBoundaryMonth(cursor.Month()) && cursor.Day() == p.cfg.RepayDay) || cursor.Equal(p.endDate) {
			timeline = append(timeline, cursor)
		}
	}
	return timeline
}

func (p *Product) rollingTimeline() []time.Time {
	var timeline []time.Time
	step := p.cfg.RepayMode.StepMonths()
	for cursor := calendar.AddMonths(p.cfg.FoundDate, step); cursor.Before(p.endDate); cursor = calendar.AddMonths(cursor, step) {
		timeline = append(timeline, cursor)
	}
	return append(timeline, p.endDate)
}

func (p *Product) customDateTimeline() []time.Time {
	found := p.cfg.FoundDate
	month := time.Month(p.cfg.RepayMonth)
	day := p.cfg.RepayDay

	cursor := time.Date(found.Year(), month, day, 0, 0, 0, 0, found.Location())
	if !cursor.After(found) {
		cursor = time.Date(found.Year()+1, month, day, 0, 0, 0, 0, found.Location())
	}

	var timeline []time.Time
	for ; !cursor.After(p.endDate); cursor = calendar.AddDays(cursor, 1) {
		if (cursor.Month() == month && cursor.Day() == day) || cursor.Equal(p.endDate) {
			timeline = append(timeline, cursor)
		}
	}
	return timeline
}
