// AngelaMos | 2026
// guard.go

package guard

import (
	"net/http"

	"github.com/carterperez-dev/tailorbook/internal/session"
)

type Requirement int

const (
	None Requirement = iota
	Customer
	Staff
)

type Outcome int

const (
	Render Outcome = iota
	Placeholder
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Placeholder:
		return "placeholder"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "render"
	}
}

type Decision struct {
	Outcome  Outcome
	Location string
}

// Evaluate decides what a route shows for the given identity state. Staff
// roles satisfy only Staff and every other role satisfies only Customer;
// a mismatch sends the user to their own home.
func Evaluate(s session.State, req Requirement) Decision {
	if req == None {
		return Decision{Outcome: Render}
	}
	if s.Loading {
		return Decision{Outcome: Placeholder}
	}
	if !s.SignedIn() {
		return Decision{Outcome: RedirectLogin, Location: "/login"}
	}

	role := s.Role()
	if (req == Staff) != session.IsStaff(role) {
		return Decision{Outcome: RedirectHome, Location: session.HomeFor(role)}
	}
	return Decision{Outcome: Render}
}

// StateFunc resolves the identity state of the browser making r.
type StateFunc func(r *http.Request) session.State

// Require runs Evaluate on every request. The placeholder asks the
// browser to retry shortly while the session is still being restored.
func Require(req Requirement, state StateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(state(r), req)

			switch d.Outcome {
			case Render:
				next.ServeHTTP(w, r)
			case Placeholder:
				w.Header().Set("Refresh", "1")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(placeholderHTML)) //nolint:errcheck // client gone
			default:
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			}
		})
	}
}

const placeholderHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Loading</title></head>` +
	`<body><div class="spinner" role="status" aria-label="Loading"></div></body></html>`
