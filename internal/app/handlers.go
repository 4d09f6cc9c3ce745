package app

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-politemail/internal/mailer"
	"github.com/goliatone/go-politemail/internal/store"
)

var (
	errLoginNotFound = errors.New("login request not found")
	errLoginExpired  = errors.New("login request expired")
)

type smap map[string]any

// render writes a full page. Queued flashes and the request state are added
// to data; page links come from the engine's globals.
func (a *App) render(w http.ResponseWriter, r *http.Request, name string, status int, data smap) {
	if data == nil {
		data = smap{}
	}
	data["state"] = getState(r)
	data["flashes"] = a.takeFlashes(w, r)

	var buf bytes.Buffer
	if _, err := a.templates.RenderTemplate(name, map[string]any(data), &buf); err != nil {
		a.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (a *App) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) writeCompose(w http.ResponseWriter, r *http.Request, form ComposeForm, add int) {
	req := ComposeRequest{
		State:   getState(r),
		Form:    form,
		Add:     add,
		Flashes: a.takeFlashes(w, r),
	}

	var buf bytes.Buffer
	if err := a.RenderCompose(r.Context(), &buf, req); err != nil {
		a.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	if getState(r).LoggedIn {
		a.writeCompose(w, r, ComposeForm{}, 0)
		return
	}
	a.render(w, r, "login", http.StatusOK, nil)
}

// handleCompose serves the compose page. The add control submits the form
// here with add=N, so the page comes back with N extra option rows and the
// values typed so far.
func (a *App) handleCompose(w http.ResponseWriter, r *http.Request) {
	if !getState(r).LoggedIn {
		a.redirectHome(w, r)
		return
	}

	query := r.URL.Query()
	add, err := strconv.Atoi(strings.TrimSpace(query.Get("add")))
	if err != nil || add < 0 {
		add = 0
	}
	form := ComposeForm{
		To:      strings.TrimSpace(query.Get("to")),
		Subject: strings.TrimSpace(query.Get("subject")),
		Body:    query.Get("body"),
		Options: query["option"],
	}
	a.writeCompose(w, r, form, add)
}

func (a *App) handleMessage(w http.ResponseWriter, r *http.Request) {
	state := getState(r)
	if !state.LoggedIn {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	to := strings.TrimSpace(r.FormValue("to"))
	if to == "" {
		http.Error(w, "recipient is required", http.StatusBadRequest)
		return
	}

	msg, err := a.store.AddMessage(r.Context(), store.Message{
		From:    state.Email,
		To:      to,
		Subject: sanitizeText(r.FormValue("subject")),
		Body:    sanitizeBody(r.FormValue("body")),
		Options: cleanOptions(r.Form["option"]),
	})
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.logger.Info("message stored",
		zap.String("id", msg.ID),
		zap.String("from", msg.From),
		zap.Int("options", len(msg.Options)),
	)
	a.render(w, r, "confirm", http.StatusOK, smap{"message": msg})
}

func (a *App) handleMessages(w http.ResponseWriter, r *http.Request) {
	state := getState(r)
	if !state.LoggedIn {
		a.redirectHome(w, r)
		return
	}
	messages, err := a.store.MessagesFor(r.Context(), state.Email)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, "messages", http.StatusOK, smap{"messages": messages})
}

// LoginURL is the absolute link mailed for a login key.
func (a *App) LoginURL(key string) string {
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/login/" + url.PathEscape(key)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" || !strings.Contains(email, "@") {
		a.flash(w, r, "Please enter a valid email address.")
		a.redirectHome(w, r)
		return
	}

	login, err := a.store.NewLogin(r.Context(), email)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	msg := mailer.Message{
		From:     a.cfg.From,
		FromName: a.cfg.FromName,
		To:       login.Email,
		Subject:  "PoliteMail Login",
		Text:     fmt.Sprintf("Click this, please: %s", a.LoginURL(login.Key)),
	}

	a.logger.Info("sending login email", zap.String("to", login.Email))
	if err := a.mailer.Send(r.Context(), msg); err != nil {
		a.logger.Warn("login email failed", zap.String("to", login.Email), zap.Error(err))
		a.flash(w, r, "The login email failed to send!")
	} else {
		a.flash(w, r, "Login email sent. Please check your mail.")
	}
	a.redirectHome(w, r)
}

func (a *App) verifyLogin(r *http.Request, key string) (string, error) {
	login, err := a.store.TakeLogin(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		return "", errLoginNotFound
	}
	if err != nil {
		return "", err
	}
	if age := a.now().Sub(login.CreatedAt); age > a.cfg.LoginTTL.Duration {
		return "", fmt.Errorf("%w: %s old", errLoginExpired, age.Round(time.Second))
	}
	return login.Email, nil
}

func (a *App) handleLoginCallback(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	session := a.session(r)

	email, err := a.verifyLogin(r, key)
	if err == nil {
		_, err = a.store.EnsureUser(r.Context(), email)
	}
	if err != nil {
		a.logger.Info("login failed", zap.Error(err))
		session.AddFlash("This login link is invalid. Please try again.")
	} else {
		a.logger.Info("login verified", zap.String("email", email))
		session.Values[sessionEmailKey] = email
		session.AddFlash("You are now logged in.")
	}
	a.saveSession(w, r, session)
	a.redirectHome(w, r)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := a.session(r)
	session.Values[sessionEmailKey] = ""
	session.AddFlash("You are now logged out.")
	a.saveSession(w, r, session)
	a.redirectHome(w, r)
}
