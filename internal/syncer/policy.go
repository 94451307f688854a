package syncer

// PageOutcome summarises one listing page for a stop decision.
type PageOutcome struct {
	Page   int
	Parsed int
	Known  int
	New    int
}

// StopPolicy reports whether pagination for a player should end after the
// given page.
type StopPolicy func(PageOutcome) bool

// StopOnKnown stops once a page reaches history synced in an earlier cycle,
// or holds nothing new.
func StopOnKnown() StopPolicy {
	return func(o PageOutcome) bool {
		return o.Known > 0 || o.New == 0
	}
}

// MaxPages stops after page n.
func MaxPages(n int) StopPolicy {
	return func(o PageOutcome) bool {
		return o.Page >= n
	}
}

func AnyOf(policies ...StopPolicy) StopPolicy {
	return func(o PageOutcome) bool {
		for _, p := range policies {
			if p(o) {
				return true
			}
		}
		return false
	}
}

// DefaultPolicy is the adaptive stop bounded by a fixed page cap.
func DefaultPolicy(maxPages int) StopPolicy {
	return AnyOf(StopOnKnown(), MaxPages(maxPages))
}
