// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Handlers run against a fake upstream API served by httptest and
// in-memory stand-ins for the session, audit, two-factor and archive
// stores, so no external service is needed.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/api"
	"qbadmin/internal/middleware"
	"qbadmin/internal/render"
	"qbadmin/internal/session"
	"qbadmin/internal/store"
)

// ---------- Fixtures ----------

const treeJSON = `[
 {"id":1,"name":"TYT","sub_categories":[
  {"id":10,"sub_category":"Matematik","categories":[{"id":100,"name":"Sayılar"},{"id":101,"name":"Üslü İfadeler"}]},
  {"id":11,"sub_category":"Fizik","categories":[{"id":110,"name":"Hareket"}]}
 ]},
 {"id":2,"main_category":"AYT","sub_categories":[]}
]`

const questionsJSON = `[
 {"id":7,"answer":"B","difficulty_level":"Zor","categories":[101],"publisher_id":2,"path_url":"http://img/7.png","solution_url":""},
 {"id":3,"answer":"A","difficulty_level":"Kolay","categories":[100,110],"publisher_id":5,"path_url":"http://img/3.png","solution_url":"http://img/3s.png"}
]`

const publishersJSON = `[
 {"id":1,"name":"Unknown","website_url":null},
 {"id":2,"name":"Admin","website_url":null},
 {"id":5,"name":"Acme Yayin","website_url":"https://acme.example"}
]`

const rolesJSON = `[{"id":1,"name":"User"},{"id":2,"name":"Admin"},{"id":3,"name":"Editor"}]`

// usersJSON lists n users; user 1 is an admin.
func usersJSON(n int) string {
	var b strings.Builder
	b.WriteString("[")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		roles := `["User"]`
		if i == 1 {
			roles = `["User","Admin"]`
		}
		fmt.Fprintf(&b, `{"id":%d,"name":"Name%d","surname":"Surname%d","username":"user%02d","email":"u%d@example.com","roles":%s}`,
			i, i, i, i, i, roles)
	}
	b.WriteString("]")
	return b.String()
}

// ---------- Fake upstream ----------

type reply struct {
	status int
	body   string
}

func ok(data string) reply {
	return reply{status: http.StatusOK, body: `{"success":true,"message":"ok","data":` + data + `}`}
}

func fail(status int, msg string) reply {
	return reply{status: status, body: fmt.Sprintf(`{"success":false,"message":%q,"data":null}`, msg)}
}

type call struct {
	Method      string
	Path        string
	Auth        string
	ContentType string
	Body        string
}

// upstream answers "METHOD /path" keys from routes and records every call.
// Unknown routes get a 404 envelope.
type upstream struct {
	mu     sync.Mutex
	routes map[string]reply
	calls  []call
}

func (u *upstream) set(route string, r reply) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[route] = r
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.calls = append(u.calls, call{
		Method:      r.Method,
		Path:        r.URL.Path,
		Auth:        r.Header.Get("Authorization"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(b),
	})
	rep, found := u.routes[r.Method+" "+r.URL.Path]
	u.mu.Unlock()
	if !found {
		rep = fail(http.StatusNotFound, "not found")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	io.WriteString(w, rep.body)
}

// writes returns the recorded non-GET calls.
func (u *upstream) writes() []call {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []call
	for _, c := range u.calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// lastWrite fails the test when no write was recorded.
func (u *upstream) lastWrite(t *testing.T) call {
	t.Helper()
	ws := u.writes()
	if len(ws) == 0 {
		t.Fatal("no write request reached the upstream")
	}
	return ws[len(ws)-1]
}

// ---------- In-memory stores ----------

type fakeSessions struct {
	mu        sync.Mutex
	created   []*session.Data
	updated   []*session.Data
	destroyed int
	createErr error
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	cp := *data
	f.created = append(f.created, &cp)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "sid", Path: "/"})
	return "sid", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *data
	f.updated = append(f.updated, &cp)
	return nil
}

func (f *fakeSessions) Destroy(_ context.Context, _ http.ResponseWriter, _ *http.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []store.AuditEntry
}

func (f *fakeAudit) Record(_ context.Context, e store.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, e)
}

func (f *fakeAudit) Recent(_ context.Context, limit int) ([]store.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.AuditEntry, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action + " " + e.EntityType
	}
	return out
}

type fakeTwoFactor struct {
	mu      sync.Mutex
	records map[int]*store.TwoFactor
}

func newFakeTwoFactor() *fakeTwoFactor {
	return &fakeTwoFactor{records: make(map[int]*store.TwoFactor)}
}

func (f *fakeTwoFactor) Get(_ context.Context, userID int) (*store.TwoFactor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tf, found := f.records[userID]
	if !found {
		return nil, nil
	}
	cp := *tf
	return &cp, nil
}

func (f *fakeTwoFactor) SaveSecret(_ context.Context, userID int, username, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[userID] = &store.TwoFactor{UserID: userID, Username: username, Secret: secret}
	return nil
}

func (f *fakeTwoFactor) Enable(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tf, found := f.records[userID]; found {
		tf.Enabled = true
	}
	return nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeArchive) Put(_ context.Context, key, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

// ---------- Environment ----------

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Upstream  *upstream
	Server    *httptest.Server
	Renderer  *render.Renderer
	Sessions  *fakeSessions
	Audit     *fakeAudit
	TwoFactor *fakeTwoFactor
	Archive   *fakeArchive
	Admin     *Admin
	Auth      *Auth
}

// newTestEnv creates handlers wired to a fake upstream serving the
// default fixtures. Auth is built without a two-factor store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	up := &upstream{routes: map[string]reply{
		"GET /admin/categories/all": ok(treeJSON),
		"GET /questions":            ok(questionsJSON),
		"GET /admin/publishers":     ok(publishersJSON),
		"GET /admin/users":          ok(usersJSON(12)),
		"GET /admin/roles":          ok(rolesJSON),
	}}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		Upstream:  up,
		Server:    srv,
		Renderer:  renderer,
		Sessions:  &fakeSessions{},
		Audit:     &fakeAudit{},
		TwoFactor: newFakeTwoFactor(),
		Archive:   &fakeArchive{},
	}
	client := api.New(srv.URL, 5*time.Second)
	env.Admin = NewAdmin(Deps{
		Renderer:      renderer,
		Sessions:      env.Sessions,
		API:           client,
		Audit:         env.Audit,
		Archive:       env.Archive,
		ImageMaxWidth: 800,
	})
	env.Auth = NewAuth(renderer, env.Sessions, client, nil, env.Audit)
	return env
}

// withTwoFactor rebuilds Auth with the in-memory two-factor store.
func (e *testEnv) withTwoFactor() *testEnv {
	e.Auth = NewAuth(e.Renderer, e.Sessions, api.New(e.Server.URL, 5*time.Second), e.TwoFactor, e.Audit)
	return e
}

// testSession creates an admin session.Data for testing.
func testSession(twoFADone bool) *session.Data {
	return &session.Data{
		UserID:    1,
		Username:  "admin",
		Name:      "Ayse",
		Surname:   "Yilmaz",
		Email:     "admin@example.com",
		Roles:     []string{"User", "Admin"},
		Token:     "tok",
		TwoFADone: twoFADone,
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return middleware.WithSession(ctx, data)
}

// withChiURLParams adds chi URL parameters, given as key/value pairs.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// newRequest builds a request carrying an admin session. POST forms are
// URL-encoded.
func newRequest(method, target string, form url.Values, params ...string) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = req.WithContext(ctxWithSession(req.Context(), testSession(true)))
	return withChiURLParams(req, params...)
}

// serve runs h against req and returns the recorder.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// flashesOf decodes the flash cookie set on rec.
func flashesOf(t *testing.T, rec *httptest.ResponseRecorder) []render.Flash {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return render.PopFlashes(httptest.NewRecorder(), req)
}

// assertRedirect checks a 303 to want.
func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d; body: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location: got %q, want %q", loc, want)
	}
}

// assertFlash checks that the first flash has the given type and message.
func assertFlash(t *testing.T, rec *httptest.ResponseRecorder, typ, msg string) {
	t.Helper()
	fs := flashesOf(t, rec)
	if len(fs) == 0 {
		t.Fatalf("no flash set, want %s %q", typ, msg)
	}
	if fs[0].Type != typ || fs[0].Message != msg {
		t.Errorf("flash: got %s %q, want %s %q", fs[0].Type, fs[0].Message, typ, msg)
	}
}

// assertBody checks that the response body contains every fragment.
func assertBody(t *testing.T, rec *httptest.ResponseRecorder, fragments ...string) {
	t.Helper()
	body := rec.Body.String()
	for _, f := range fragments {
		if !strings.Contains(body, f) {
			t.Errorf("body missing %q", f)
		}
	}
}
