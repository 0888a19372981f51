package order

import "fmt"

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from []OrderStatus
	to   OrderStatus
}

var transitions = map[Action]transition{
	ActionConfirm: {from: []OrderStatus{StatusPending}, to: StatusConfirmed},
	ActionShip:    {from: []OrderStatus{StatusConfirmed}, to: StatusShipped},
	ActionDeliver: {from: []OrderStatus{StatusShipped}, to: StatusDelivered},
	ActionCancel:  {from: []OrderStatus{StatusPending, StatusConfirmed}, to: StatusCancelled},
}

// Next returns the status reached by applying action to current.
func Next(current OrderStatus, action Action) (OrderStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	for _, s := range t.from {
		if s == current {
			return t.to, nil
		}
	}
	return current, fmt.Errorf("%w: cannot %s order in status %s", ErrInvalidTransition, action, current)
}

// SourcesOf lists the statuses action may start from.
func SourcesOf(action Action) []OrderStatus {
	t := transitions[action]
	out := make([]OrderStatus, len(t.from))
	copy(out, t.from)
	return out
}

func CanCancel(s OrderStatus) bool {
	_, err := Next(s, ActionCancel)
	return err == nil
}
