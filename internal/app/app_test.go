package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/goliatone/go-politemail/internal/app"
	"github.com/goliatone/go-politemail/internal/config"
	"github.com/goliatone/go-politemail/internal/mailer"
	"github.com/goliatone/go-politemail/internal/store"
	"github.com/goliatone/go-politemail/pkg/dom"
	"github.com/goliatone/go-politemail/pkg/testsupport"
)

type harness struct {
	app    *app.App
	store  *store.Store
	outbox *mailer.Outbox
	server *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, opts ...app.Option) *harness {
	t.Helper()
	ctx := testsupport.Context()

	s, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.Default()
	cfg.SecretKey = "test-secret-key-0123456789abcdef"
	cfg.MaxExtraOptions = 5

	outbox := &mailer.Outbox{}
	base := []app.Option{app.WithStore(s), app.WithMailer(outbox)}
	a, err := app.New(ctx, cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &harness{
		app:    a,
		store:  s,
		outbox: outbox,
		server: srv,
		client: &http.Client{Jar: jar},
	}
}

func (h *harness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return readBody(t, resp)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(data)
}

// login walks the emailed-link flow for email.
func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	status, body := h.post(t, "/login", url.Values{"email": {email}})
	if status != http.StatusOK {
		t.Fatalf("login status %d", status)
	}
	if !strings.Contains(body, "Login email sent") {
		t.Fatalf("expected sent flash, got:\n%s", body)
	}

	sent := h.outbox.Sent()
	if len(sent) == 0 {
		t.Fatalf("no login email sent")
	}
	text := sent[len(sent)-1].Text
	idx := strings.Index(text, "/login/")
	if idx < 0 {
		t.Fatalf("login link missing from %q", text)
	}
	link := text[idx:]

	status, body = h.get(t, link)
	if status != http.StatusOK {
		t.Fatalf("callback status %d", status)
	}
	return body
}

func optionRows(t *testing.T, body string) []*html.Node {
	t.Helper()
	doc := testsupport.MustParseDocument(t, body)
	grid, err := dom.Query(doc.Root(), ".option-grid")
	if err != nil || grid == nil {
		t.Fatalf("option grid missing: %v", err)
	}
	rows, err := dom.QueryAll(grid, ".option-row")
	if err != nil {
		t.Fatalf("query rows: %v", err)
	}
	last, err := dom.QueryLast(grid, ".cell")
	if err != nil || last == nil {
		t.Fatalf("last cell missing: %v", err)
	}
	if !strings.Contains(dom.Attr(last, "class"), "option-add-cell") {
		t.Fatalf("add cell is no longer last: %q", dom.Attr(last, "class"))
	}
	return rows
}

func TestHome_ShowsLoginWhenAnonymous(t *testing.T) {
	h := newHarness(t)
	status, body := h.get(t, "/")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(body, `action="/login"`) {
		t.Fatalf("expected login form, got:\n%s", body)
	}
}

func TestLoginFlow_ShowsComposeWithOneOption(t *testing.T) {
	h := newHarness(t)
	body := h.login(t, "ada@example.com")

	if !strings.Contains(body, "You are now logged in.") {
		t.Fatalf("expected login flash, got:\n%s", body)
	}
	if !strings.Contains(body, "From: ada@example.com") {
		t.Fatalf("compose page does not show sender")
	}
	if rows := optionRows(t, body); len(rows) != 1 {
		t.Fatalf("expected 1 option row, got %d", len(rows))
	}

	if _, err := h.store.User(testsupport.Context(), "ada@example.com"); err != nil {
		t.Fatalf("user not created: %v", err)
	}
}

func TestCompose_AddClicksAndPrefill(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")

	query := url.Values{
		"add":     {"2"},
		"to":      {"team@example.com"},
		"subject": {"Lunch"},
		"option":  {"Tacos", "Ramen"},
	}
	status, body := h.get(t, "/compose?"+query.Encode())
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}

	rows := optionRows(t, body)
	if len(rows) != 3 {
		t.Fatalf("expected 3 option rows, got %d", len(rows))
	}
	var values []string
	for _, row := range rows {
		input, _ := dom.Query(row, "input")
		values = append(values, dom.Attr(input, "value"))
	}
	if diff := cmp.Diff([]string{"Tacos", "Ramen", ""}, values); diff != "" {
		t.Fatalf("option values mismatch (-want +got):\n%s", diff)
	}

	doc := testsupport.MustParseDocument(t, body)
	if got := dom.Attr(doc.ByID("option-add"), "value"); got != "3" {
		t.Fatalf("add control should request 3 clicks next, got %q", got)
	}
	to, _ := dom.Query(doc.Root(), `input[name="to"]`)
	if dom.Attr(to, "value") != "team@example.com" {
		t.Fatalf("recipient not echoed back")
	}
}

func TestCompose_ClampsClicks(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")

	_, body := h.get(t, "/compose?add=100")
	if rows := optionRows(t, body); len(rows) != 6 {
		t.Fatalf("expected 1+5 option rows, got %d", len(rows))
	}
}

func TestCompose_RedirectsAnonymous(t *testing.T) {
	h := newHarness(t)
	_, body := h.get(t, "/compose")
	if !strings.Contains(body, `action="/login"`) {
		t.Fatalf("expected redirect to login page")
	}
}

func TestMessage_StoresSanitizedMessage(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")

	status, body := h.post(t, "/message", url.Values{
		"to":      {"team@example.com"},
		"subject": {"Lunch <b>today</b>"},
		"body":    {`Pick one <script>alert(1)</script><em>please</em>`},
		"option":  {"Tacos", "  ", "<i>Ramen</i>"},
	})
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("script survived sanitizing")
	}
	if !strings.Contains(body, "<em>please</em>") {
		t.Fatalf("allowed formatting was stripped")
	}

	messages, err := h.store.MessagesFor(testsupport.Context(), "ada@example.com")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	if diff := cmp.Diff([]string{"Tacos", "Ramen"}, msg.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if msg.Subject != "Lunch today" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}

	_, list := h.get(t, "/messages")
	if !strings.Contains(list, msg.ID) {
		t.Fatalf("message list does not include %s", msg.ID)
	}
}

func TestMessage_ForbiddenWhenAnonymous(t *testing.T) {
	h := newHarness(t)
	status, _ := h.post(t, "/message", url.Values{"to": {"x@example.com"}})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
}

func TestMessage_RequiresRecipient(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")
	status, _ := h.post(t, "/message", url.Values{"subject": {"hi"}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestLoginCallback_RejectsReuseAndUnknownKeys(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")
	h.get(t, "/logout")

	link := h.outbox.Sent()[0].Text
	link = link[strings.Index(link, "/login/"):]

	_, body := h.get(t, link)
	if !strings.Contains(body, "This login link is invalid") {
		t.Fatalf("reused link accepted:\n%s", body)
	}
	_, body = h.get(t, "/login/not-a-key")
	if !strings.Contains(body, "This login link is invalid") {
		t.Fatalf("unknown key accepted")
	}
}

func TestLoginCallback_RejectsExpiredKeys(t *testing.T) {
	later := time.Now().Add(2 * time.Hour)
	h := newHarness(t, app.WithClock(func() time.Time { return later }))

	_, _ = h.post(t, "/login", url.Values{"email": {"ada@example.com"}})
	link := h.outbox.Sent()[0].Text
	_, body := h.get(t, link[strings.Index(link, "/login/"):])
	if !strings.Contains(body, "This login link is invalid") {
		t.Fatalf("expired link accepted:\n%s", body)
	}
	if !strings.Contains(body, `action="/login"`) {
		t.Fatalf("expected to remain logged out")
	}
}

func TestLogin_MailFailureFlashes(t *testing.T) {
	h := newHarness(t)
	h.outbox.Err = context.DeadlineExceeded

	_, body := h.post(t, "/login", url.Values{"email": {"ada@example.com"}})
	if !strings.Contains(body, "The login email failed to send!") {
		t.Fatalf("expected failure flash, got:\n%s", body)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ada@example.com")

	_, body := h.get(t, "/logout")
	if !strings.Contains(body, "You are now logged out.") {
		t.Fatalf("expected logout flash")
	}
	if !strings.Contains(body, `action="/login"`) {
		t.Fatalf("expected login page after logout")
	}
}

func TestStylesheetServed(t *testing.T) {
	h := newHarness(t)
	status, body := h.get(t, "/"+app.StylesheetName)
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(body, ".option-grid") {
		t.Fatalf("unexpected stylesheet body")
	}

	_, page := h.get(t, "/")
	if !strings.Contains(page, `href="/`+app.StylesheetName+`"`) {
		t.Fatalf("pages do not link the stylesheet:\n%s", page)
	}
}

func TestPages_LinkLogoutWhenLoggedIn(t *testing.T) {
	h := newHarness(t)
	body := h.login(t, "ada@example.com")
	if !strings.Contains(body, `<a href="/logout">Log out</a>`) {
		t.Fatalf("logout link missing:\n%s", body)
	}
}
