package accounts

import "fmt"

// PointsLogger receives the human-readable line emitted when a points value
// actually changes.
type PointsLogger interface {
	Infof(format string, v ...any)
}

// Ledger applies observed points values to the store. Writes are idempotent:
// recording a value equal to the stored one touches neither the file nor the
// log.
type Ledger struct {
	store *Store
	log   PointsLogger
}

// NewLedger creates a ledger over the given store. The logger may be nil, in
// which case changes are persisted silently.
func NewLedger(store *Store, log PointsLogger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Record persists a points observation for the account. It returns whether
// the stored value changed and, when it did, the delta against the previous
// value. No delta is reported the first time an account is observed.
func (l *Ledger) Record(email string, points int) (delta *int, changed bool, err error) {
	prev, changed, err := l.store.SetPoints(email, points)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record points for %s: %w", email, err)
	}
	if !changed {
		return nil, false, nil
	}

	if prev != nil {
		d := points - *prev
		delta = &d
	}

	if l.log != nil {
		if delta != nil {
			l.log.Infof("%s | +%d pts (%d total)", email, *delta, points)
		} else {
			l.log.Infof("%s | %d pts", email, points)
		}
	}
	return delta, true, nil
}
