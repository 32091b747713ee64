package guard

import "testing"

type fakeSession struct{ loading, authed bool }

func (f fakeSession) Loading() bool         { return f.loading }
func (f fakeSession) IsAuthenticated() bool { return f.authed }

type fakeUsers struct{ loading, fetched, admin bool }

func (f fakeUsers) Loading() bool        { return f.loading }
func (f fakeUsers) CurrentFetched() bool { return f.fetched }
func (f fakeUsers) IsAdmin() bool        { return f.admin }

func TestAuthenticated(t *testing.T) {
	tests := []struct {
		name    string
		session fakeSession
		want    Decision
	}{
		{"bootstrapping", fakeSession{loading: true}, Decision{State: Checking}},
		{"bootstrapping with user", fakeSession{loading: true, authed: true}, Decision{State: Checking}},
		{"logged in", fakeSession{authed: true}, Decision{State: Allow}},
		{"logged out", fakeSession{}, Decision{State: Redirect, Redirect: RouteLogin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authenticated(tt.session); got != tt.want {
				t.Errorf("Authenticated() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAdmin(t *testing.T) {
	authed := fakeSession{authed: true}
	tests := []struct {
		name    string
		session fakeSession
		users   fakeUsers
		want    Decision
	}{
		{"logged out", fakeSession{}, fakeUsers{}, Decision{State: Redirect, Redirect: RouteLogin}},
		{"profile not fetched yet", authed, fakeUsers{}, Decision{State: Checking}},
		{"profile loading", authed, fakeUsers{loading: true}, Decision{State: Checking}},
		{"admin", authed, fakeUsers{fetched: true, admin: true}, Decision{State: Allow}},
		{"not admin", authed, fakeUsers{fetched: true}, Decision{State: Redirect, Redirect: RouteHome}},
		{"refetching admin", authed, fakeUsers{loading: true, fetched: true, admin: true}, Decision{State: Checking}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Admin(tt.session, tt.users); got != tt.want {
				t.Errorf("Admin() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNeedsCurrentUser(t *testing.T) {
	if NeedsCurrentUser(fakeSession{}, fakeUsers{}) {
		t.Error("logged out sessions have nothing to fetch")
	}
	if !NeedsCurrentUser(fakeSession{authed: true}, fakeUsers{}) {
		t.Error("an authenticated session without a profile needs a fetch")
	}
	if NeedsCurrentUser(fakeSession{authed: true}, fakeUsers{loading: true}) {
		t.Error("no second fetch while one is running")
	}
	if NeedsCurrentUser(fakeSession{authed: true}, fakeUsers{fetched: true}) {
		t.Error("already fetched")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		session fakeSession
		users   fakeUsers
		want    Route
		ok      bool
	}{
		{"home while bootstrapping", RouteHome, fakeSession{loading: true}, fakeUsers{}, RouteHome, false},
		{"home logged out", RouteHome, fakeSession{}, fakeUsers{}, RouteLogin, true},
		{"login when logged in", RouteLogin, fakeSession{authed: true}, fakeUsers{}, RouteHome, true},
		{"admin as regular user", RouteAdmin, fakeSession{authed: true}, fakeUsers{fetched: true}, RouteHome, true},
		{"admin as admin", RouteAdmin, fakeSession{authed: true}, fakeUsers{fetched: true, admin: true}, RouteAdmin, true},
		{"admin logged out", RouteAdmin, fakeSession{}, fakeUsers{}, RouteLogin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.route, tt.session, tt.users)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Resolve() = %s, %v; want %s, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
