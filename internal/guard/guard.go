// Package guard decides which screens a session may see.
package guard

// Route names a top-level screen
type Route string

const (
	RouteLogin Route = "login"
	RouteHome  Route = "home"
	RouteAdmin Route = "admin"
	RouteStats Route = "stats"
)

// State is the outcome of a guard check
type State int

const (
	// Checking means the answer is not known yet; show a spinner
	Checking State = iota
	Allow
	Redirect
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is a guard's answer. Redirect is set only for State Redirect.
type Decision struct {
	State    State
	Redirect Route
}

// Session is the part of the session store guards read
type Session interface {
	Loading() bool
	IsAuthenticated() bool
}

// Users is the part of the users store the admin guard reads
type Users interface {
	Loading() bool
	CurrentFetched() bool
	IsAdmin() bool
}

func allow() Decision { return Decision{State: Allow} }
func checking() Decision { return Decision{State: Checking} }
func redirect(to Route) Decision { return Decision{State: Redirect, Redirect: to} }

// Authenticated lets logged-in sessions through and sends everyone else
// to the login screen once bootstrap has finished
func Authenticated(session Session) Decision {
	switch {
	case session.Loading():
		return checking()
	case session.IsAuthenticated():
		return allow()
	default:
		return redirect(RouteLogin)
	}
}

// Admin allows users whose fetched profile is an admin. Being logged in
// is not enough: until FetchCurrentUser completes the answer is Checking.
func Admin(session Session, users Users) Decision {
	if d := Authenticated(session); d.State != Allow {
		return d
	}
	switch {
	case users.Loading() || !users.CurrentFetched():
		return checking()
	case users.IsAdmin():
		return allow()
	default:
		return redirect(RouteHome)
	}
}

// NeedsCurrentUser reports whether the caller should start
// FetchCurrentUser so that Admin can decide
func NeedsCurrentUser(session Session, users Users) bool {
	return !session.Loading() && session.IsAuthenticated() &&
		!users.Loading() && !users.CurrentFetched()
}

// Resolve applies the guard for route and returns the screen to show,
// following at most one redirect. ok is false while a guard is checking.
func Resolve(route Route, session Session, users Users) (Route, bool) {
	for i := 0; i < 2; i++ {
		var d Decision
		switch route {
		case RouteLogin:
			if session.Loading() {
				return route, false
			}
			if session.IsAuthenticated() {
				route = RouteHome
				continue
			}
			return route, true
		case RouteAdmin:
			d = Admin(session, users)
		default:
			d = Authenticated(session)
		}
		switch d.State {
		case Checking:
			return route, false
		case Allow:
			return route, true
		}
		route = d.Redirect
	}
	return route, true
}
