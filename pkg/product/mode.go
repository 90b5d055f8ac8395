package product

import "time"

// RepayMode selects how interest payment dates are laid out over the term.
type RepayMode int

const (
	RepayModeNaturalMonth    RepayMode = 0
	RepayModeNaturalQuarter  RepayMode = 1
	RepayModeNaturalHalfYear RepayMode = 2
	RepayModeNaturalYear     RepayMode = 3
	RepayModeMonth           RepayMode = 10
	RepayModeQuarter         RepayMode = 11
	RepayModeHalfYear        RepayMode = 12
	RepayModeYear            RepayMode = 13
	RepayModeEndDate         RepayMode = 20
	RepayModeCustomDate      RepayMode = 50
)

// ModeFamily groups repay modes sharing one timeline rule.
type ModeFamily int

const (
	FamilyUnknown ModeFamily = iota
	FamilyNatural
	FamilyRolling
	FamilyEndDate
	FamilyCustomDate
)

type modeInfo struct {
	label  string
	family ModeFamily
	months []time.Month // natural boundary months
	step   int          // rolling step in months
}

var modeTable = map[RepayMode]modeInfo{
	RepayModeNaturalMonth: {
		label:  "Natural monthly interest, principal at maturity",
		family: FamilyNatural,
		months: []time.Month{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	},
	RepayModeNaturalQuarter: {
		label:  "Natural quarterly interest, principal at maturity",
		family: FamilyNatural,
		months: []time.Month{3, 6, 9, 12},
	},
	RepayModeNaturalHalfYear: {
		label:  "Natural half-yearly interest, principal at maturity",
		family: FamilyNatural,
		months: []time.Month{6, 12},
	},
	RepayModeNaturalYear: {
		label:  "Natural yearly interest, principal at maturity",
		family: FamilyNatural,
		months: []time.Month{12},
	},
	RepayModeMonth:      {label: "Monthly interest, principal at maturity", family: FamilyRolling, step: 1},
	RepayModeQuarter:    {label: "Quarterly interest, principal at maturity", family: FamilyRolling, step: 3},
	RepayModeHalfYear:   {label: "Half-yearly interest, principal at maturity", family: FamilyRolling, step: 6},
	RepayModeYear:       {label: "Yearly interest, principal at maturity", family: FamilyRolling, step: 12},
	RepayModeEndDate:    {label: "Interest and principal at maturity", family: FamilyEndDate},
	RepayModeCustomDate: {label: "Interest on a fixed date each year, principal at maturity", family: FamilyCustomDate},
}

// Valid reports whether m is one of the known repay modes.
func (m RepayMode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// Label is the display name of the mode.
func (m RepayMode) Label() string {
	return modeTable[m].label
}

// Family is the timeline rule the mode follows.
func (m RepayMode) Family() ModeFamily {
	return modeTable[m].family
}

// BoundaryMonths lists the months a natural mode pays in; nil for other modes.
func (m RepayMode) BoundaryMonths() []time.Month {
	months := modeTable[m].months
	if months == nil {
		return nil
	}
	out := make([]time.Month, len(months))
	copy(out, months)
	return out
}

// StepMonths is the month step of a rolling mode; 0 for other modes.
func (m RepayMode) StepMonths() int {
	return modeTable[m].step
}

func (m RepayMode) isBoundaryMonth(month time.Month) bool {
	for _, b := range modeTable[m].months {
		if b == month {
			return true
		}
	}
	return false
}

// TermUnit is the unit a loan term is expressed in.
type TermUnit string

const (
	TermUnitDay   TermUnit = "day"
	TermUnitMonth TermUnit = "month"
	TermUnitYear  TermUnit = "year"
)

// Valid reports whether u is a known term unit.
func (u TermUnit) Valid() bool {
	switch u {
	case TermUnitDay, TermUnitMonth, TermUnitYear:
		return true
	}
	return false
}

// AdvanceInterestType controls how the advance interest start date is chosen.
type AdvanceInterestType string

const (
	// AdvanceInterestPlain starts accruing delay days after the subscription date.
	AdvanceInterestPlain AdvanceInterestType = "plain"
	// AdvanceInterestSkipHoliday additionally moves the start past holidays.
	AdvanceInterestSkipHoliday AdvanceInterestType = "skip_holiday"
)

// Valid reports whether t is a known advance interest type.
func (t AdvanceInterestType) Valid() bool {
	return t == AdvanceInterestPlain || t == AdvanceInterestSkipHoliday
}
