package kvmswitch

import "time"

const changingDeadline = 5 * time.Second

// UnitContext tracks one chassis's last-known state and any in-flight
// change request.
type UnitContext struct {
	State   *UnitState
	ATXLeds *UnitAtxLeds

	changingRID      int32
	changingDeadline time.Time
}

func newUnitContext() *UnitContext {
	return &UnitContext{changingRID: -1}
}

// CanBeChanged reports whether a new convergence request may be sent
// to this unit right now.
func (u *UnitContext) CanBeChanged() bool {
	return u.State != nil && !u.State.Flags.ChangingBusy && u.ChangingRID() < 0
}

// ChangingRID returns the rid of the in-flight request, or -1 if none
// is outstanding or its deadline has passed.
func (u *UnitContext) ChangingRID() int32 {
	if u.changingRID >= 0 && time.Now().After(u.changingDeadline) {
		u.changingRID = -1
	}
	return u.changingRID
}

// SetChangingRID records a newly issued request's rid with a 5-second
// deadline, or clears it when rid is negative.
func (u *UnitContext) SetChangingRID(rid int32) {
	u.changingRID = rid
	if rid >= 0 {
		u.changingDeadline = time.Now().Add(changingDeadline)
	}
}

// IsATXAllowed reports whether an ATX click may be issued on channel
// ch, and the channel's last-known power LED state.
func (u *UnitContext) IsATXAllowed(ch int) (allowed bool, powered bool) {
	if u.State == nil || u.ATXLeds == nil {
		return false, false
	}
	return !u.State.ATXBusy[ch], u.ATXLeds.Power[ch]
}
