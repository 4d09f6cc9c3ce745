package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName     = "session"
	sessionEmailKey = "email"
)

// ReqState is what every handler knows about the caller.
type ReqState struct {
	Email    string `json:"email"`
	LoggedIn bool   `json:"logged_in"`
}

type stateKey struct{}

func getState(r *http.Request) ReqState {
	state, _ := r.Context().Value(stateKey{}).(ReqState)
	return state
}

// session returns the caller's session. A cookie that fails to decode (for
// example after a secret rotation) yields a fresh session.
func (a *App) session(r *http.Request) *sessions.Session {
	session, err := a.sessionStore.Get(r, sessionName)
	if err != nil {
		a.logger.Warn("discarding invalid session", zap.Error(err))
	}
	return session
}

func (a *App) loadState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, _ := a.session(r).Values[sessionEmailKey].(string)
		ctx := context.WithValue(r.Context(), stateKey{}, ReqState{
			Email:    email,
			LoggedIn: email != "",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// flash queues a message for the next rendered page.
func (a *App) flash(w http.ResponseWriter, r *http.Request, message string) {
	session := a.session(r)
	session.AddFlash(message)
	a.saveSession(w, r, session)
}

// takeFlashes pops queued messages.
func (a *App) takeFlashes(w http.ResponseWriter, r *http.Request) []string {
	session := a.session(r)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	a.saveSession(w, r, session)

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func (a *App) saveSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := session.Save(r, w); err != nil {
		a.logger.Error("save session", zap.Error(err))
	}
}
