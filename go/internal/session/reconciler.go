package session

// Reconciler merges locally-generated optimistic score increments with
// authoritative values observed from the store. The two sides live in
// separate fields and meet only in pure merge rules: the own displayed score
// is max(optimistic, authoritative) and therefore never regresses when a
// notification reflecting a stale read arrives; the opponent score has no
// optimistic path and always renders the authoritative value.
//
// Not safe for concurrent use; the Client serializes access.
type Reconciler struct {
	optimistic       int
	authoritative    int
	oppAuthoritative int
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// LocalTap applies one optimistic increment, before any store round-trip,
// and returns the new displayed own score.
func (r *Reconciler) LocalTap(amount int) int {
	r.optimistic += amount
	return r.OwnScore()
}

// ObserveOwn records the own score reported by the store. Lower values than
// the optimistic count are kept but do not affect the display.
func (r *Reconciler) ObserveOwn(score int) {
	if score > r.authoritative {
		r.authoritative = score
	}
}

// ObserveOpponent records the opponent score reported by the store.
func (r *Reconciler) ObserveOpponent(score int) {
	if score > r.oppAuthoritative {
		r.oppAuthoritative = score
	}
}

// OwnScore returns the displayed own score.
func (r *Reconciler) OwnScore() int {
	return mergeOwn(r.optimistic, r.authoritative)
}

// OpponentScore returns the displayed opponent score.
func (r *Reconciler) OpponentScore() int {
	return r.oppAuthoritative
}

// mergeOwn is the reconciliation rule for the player's own score.
func mergeOwn(optimistic, authoritative int) int {
	if optimistic > authoritative {
		return optimistic
	}
	return authoritative
}
