package service

import "github.com/fixmasters/master-app/internal/core/domain"

// Route is a coarse navigation target inside the mini app.
type Route string

const (
	RouteHome  Route = "/orders"
	RouteSetup Route = "/profile/setup"
)

// NavDecision is the gate's verdict for the current location.
type NavDecision int

const (
	// NavHold: bootstrap is unresolved, keep showing the neutral loading state.
	NavHold NavDecision = iota
	// NavStay: the current location is consistent with the onboarding flag.
	NavStay
	// NavRedirect: move to Target.
	NavRedirect
)

// DecideRoute compares the onboarding flag against the current location:
// needsSetup must end up at the setup route, and a completed profile must not
// remain there. resolved=false always holds.
func DecideRoute(result domain.BootstrapResult, resolved bool, current Route) (NavDecision, Route) {
	if !resolved {
		return NavHold, current
	}
	if result.NeedsSetup && current != RouteSetup {
		return NavRedirect, RouteSetup
	}
	if !result.NeedsSetup && current == RouteSetup {
		return NavRedirect, RouteHome
	}
	return NavStay, current
}
