package payment

import "fmt"

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusSuccess, StatusFailed},
	StatusSuccess: {StatusRefunded},
}

func CanTransition(from, to TransactionStatus) bool {
	for _, s := range transactionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to TransactionStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Terminal reports whether no transition leaves s.
func Terminal(s TransactionStatus) bool {
	return len(transactionTransitions[s]) == 0
}
