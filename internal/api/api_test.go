// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbadmin/internal/models"
)

// ---------- Helpers ----------

// recorded is one request seen by the fake upstream.
type recorded struct {
	Method      string
	Path        string
	Auth        string
	ContentType string
	Body        []byte
}

// fakeUpstream answers every request with status and body and records what
// it received.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func newFakeUpstream(t *testing.T, status int, body string) (*fakeUpstream, *httptest.Server) {
	t.Helper()
	f := &fakeUpstream{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        b,
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		io.WriteString(w, f.body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUpstream) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "no request reached the upstream")
	return f.requests[len(f.requests)-1]
}

func (f *fakeUpstream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

const okEmpty = `{"success":true,"message":"ok","data":null}`

// memCache is an in-memory Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, scope, path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[scope+":"+path]
	return b, ok
}

func (m *memCache) Set(_ context.Context, scope, path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[scope+":"+path] = data
}

func (m *memCache) Invalidate(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		_, path, _ := strings.Cut(k, ":")
		if strings.HasPrefix(path, prefix) {
			delete(m.data, k)
		}
	}
}

// =====================================================================
// Envelope handling
// =====================================================================

func TestLogin_Success(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK,
		`{"success":true,"message":"","data":{"token":"tok","user":{"id":1,"username":"ada","roles":["User","Admin"]}}}`)

	res, err := New(srv.URL, time.Second).Login(context.Background(), "ada", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.True(t, res.User.IsAdmin())

	req := f.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/login", req.Path)
	assert.Empty(t, req.Auth)
	assert.JSONEq(t, `{"username":"ada","password":"secret"}`, string(req.Body))
}

func TestLogin_MissingToken(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK, `{"success":true,"data":{"user":{"id":1}}}`)

	_, err := New(srv.URL, time.Second).Login(context.Background(), "ada", "secret")
	require.Error(t, err)
}

func TestDo_BusinessFailure(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK, `{"success":false,"message":"Kategori zaten mevcut"}`)

	err := New(srv.URL, time.Second).WithToken("t").CreateCategoryHierarchy(context.Background(), models.CategoryHierarchy{})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Kategori zaten mevcut", apiErr.Message)
	assert.Equal(t, "Kategori zaten mevcut", Message(err, "fallback"))
}

func TestDo_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json message", http.StatusBadRequest, `{"success":false,"message":"invalid credentials"}`, "invalid credentials"},
		{"no body", http.StatusInternalServerError, ``, "Internal Server Error"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeUpstream(t, tt.status, tt.body)

			_, err := New(srv.URL, time.Second).Publishers(context.Background())
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestDo_Unauthorized(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusUnauthorized, `{"success":false,"message":"token expired"}`)

	_, err := New(srv.URL, time.Second).Users(context.Background())
	assert.True(t, IsUnauthorized(err))
}

func TestDo_TransportFailure(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK, okEmpty)
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Questions(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Could not reach the server", Message(err, "Could not reach the server"))
	assert.False(t, IsUnauthorized(err))
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK, `{not json`)

	_, err := New(srv.URL, time.Second).Questions(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestWithToken_DoesNotMutateBase(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, `{"success":true,"data":[]}`)
	base := New(srv.URL+"/", time.Second)

	_, err := base.WithToken("abc").Questions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", f.last(t).Auth)
	assert.Equal(t, "/questions", f.last(t).Path)

	_, err = base.Questions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.last(t).Auth)
}

// =====================================================================
// Endpoints
// =====================================================================

func TestCategoryEndpoints(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, okEmpty)
	c := New(srv.URL, time.Second).WithToken("t")
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
		body   string
	}{
		{
			name: "create hierarchy",
			call: func() error {
				return c.CreateCategoryHierarchy(ctx, models.CategoryHierarchy{
					MainCategory:  "TYT",
					SubCategories: []models.SubCategoryGroup{{SubCategory: "Matematik", Categories: []string{"Sayılar"}}},
				})
			},
			method: http.MethodPost,
			path:   "/admin/categories",
			body:   `{"main_category":"TYT","sub_categories":[{"sub_category":"Matematik","categories":["Sayılar"]}]}`,
		},
		{"rename main", func() error { return c.UpdateMainCategory(ctx, 3, "AYT") }, http.MethodPut, "/admin/categories/main/3", `{"name":"AYT"}`},
		{"delete main", func() error { return c.DeleteMainCategory(ctx, 3) }, http.MethodDelete, "/admin/categories/main/3", ""},
		{
			name:   "add sub",
			call:   func() error { return c.AddSubCategory(ctx, 3, models.SubCategoryGroup{SubCategory: "Fizik", Categories: []string{"Optik"}}) },
			method: http.MethodPost,
			path:   "/admin/categories/3/sub",
			body:   `{"sub_category":"Fizik","categories":["Optik"]}`,
		},
		{"rename sub", func() error { return c.UpdateSubCategory(ctx, 7, "Kimya") }, http.MethodPut, "/admin/categories/sub/7", `{"name":"Kimya"}`},
		{"delete sub", func() error { return c.DeleteSubCategory(ctx, 7) }, http.MethodDelete, "/admin/categories/sub/7", ""},
		{"add leaves", func() error { return c.AddLeafCategories(ctx, 7, []string{"Asitler", "Bazlar"}) }, http.MethodPost, "/admin/categories/sub/7/categories", `{"categories":["Asitler","Bazlar"]}`},
		{"rename leaf", func() error { return c.UpdateLeafCategory(ctx, 7, 70, "Tuzlar") }, http.MethodPut, "/admin/categories/sub/7/category/70", `{"name":"Tuzlar"}`},
		{"delete leaf", func() error { return c.DeleteLeafCategory(ctx, 7, 70) }, http.MethodDelete, "/admin/categories/sub/7/category/70", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			req := f.last(t)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, "Bearer t", req.Auth)
			if tt.body == "" {
				assert.Empty(t, req.Body)
			} else {
				assert.JSONEq(t, tt.body, string(req.Body))
			}
		})
	}
}

func TestCategoryTree_DecodesBothShapes(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK,
		`{"success":true,"data":[{"id":1,"main_category":"TYT","sub_categories":[{"id":2,"sub_category":"Matematik","categories":[{"id":3,"name":"Sayılar"}]}]}]}`)

	mains, err := New(srv.URL, time.Second).CategoryTree(context.Background())
	require.NoError(t, err)
	require.Len(t, mains, 1)
	assert.Equal(t, "TYT", mains[0].Name)
	assert.Equal(t, "Matematik", mains[0].SubCategories[0].Name)

	raw, err := New(srv.URL, time.Second).CategoryTreeJSON(context.Background())
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestQuestions_TolerantTimestamps(t *testing.T) {
	_, srv := newFakeUpstream(t, http.StatusOK, `{"success":true,"data":[
		{"id":1,"created_at":"2024-03-01T10:00:00.123456+03:00","updated_at":"2024-03-01 10:00:00"},
		{"id":2,"created_at":"not a date","updated_at":null}
	]}`)

	qs, err := New(srv.URL, time.Second).Questions(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, 2024, qs[0].CreatedAt.Year())
	assert.True(t, qs[0].UpdatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, qs[1].CreatedAt.IsZero())
	assert.True(t, qs[1].UpdatedAt.IsZero())
}

func TestCreateQuestion_Multipart(t *testing.T) {
	var gotData string
	var gotFiles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotData = r.FormValue("data")
		for field := range r.MultipartForm.File {
			gotFiles = append(gotFiles, field)
		}
		io.WriteString(w, okEmpty)
	}))
	defer srv.Close()

	data := models.QuestionData{Answer: "C", PublisherID: 2, DifficultyLevel: "Orta", CategoryIDs: []int{10, 11}}
	img := &File{Filename: "q.png", ContentType: "image/png", Data: []byte("png")}

	err := New(srv.URL, time.Second).CreateQuestion(context.Background(), data, img, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"C","publisher_id":2,"difficulty_level":"Orta","category_ids":[10,11]}`, gotData)
	assert.Equal(t, []string{"question_image"}, gotFiles)
}

func TestUpdateQuestion_KeepsURLs(t *testing.T) {
	var gotData, method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		method, path = r.Method, r.URL.Path
		gotData = r.FormValue("data")
		io.WriteString(w, okEmpty)
	}))
	defer srv.Close()

	q := models.Question{ID: 9, PathURL: "/uploads/9.png"}
	upd := models.NewQuestionUpdate(models.QuestionData{Answer: "A", PublisherID: 2, DifficultyLevel: "Kolay", CategoryIDs: []int{1}}, q, false, false)

	require.NoError(t, New(srv.URL, time.Second).UpdateQuestion(context.Background(), 9, upd, nil, nil))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/admin/questions/9", path)
	assert.JSONEq(t, `{"answer":"A","publisher_id":2,"difficulty_level":"Kolay","category_ids":[1],"path_url":"/uploads/9.png","solution_url":null}`, gotData)
}

func TestPublisherEndpoints(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, okEmpty)
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.CreatePublisher(ctx, models.NewPublisherInput("Acme", "")))
	assert.Equal(t, "/admin/publishers", f.last(t).Path)
	assert.JSONEq(t, `{"name":"Acme","website_url":null}`, string(f.last(t).Body))

	require.NoError(t, c.UpdatePublisher(ctx, 4, models.NewPublisherInput("Acme", "https://acme.example")))
	assert.Equal(t, http.MethodPut, f.last(t).Method)
	assert.Equal(t, "/admin/publishers/4", f.last(t).Path)

	require.NoError(t, c.DeletePublisher(ctx, 4))
	assert.Equal(t, http.MethodDelete, f.last(t).Method)
}

func TestRoleEndpoints(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, okEmpty)
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.AddRole(ctx, 5, "Editor"))
	assert.Equal(t, http.MethodPost, f.last(t).Method)
	assert.Equal(t, "/admin/users/5/roles", f.last(t).Path)
	assert.JSONEq(t, `{"role_name":"Editor"}`, string(f.last(t).Body))

	require.NoError(t, c.RemoveRole(ctx, 5, "Editor"))
	assert.Equal(t, http.MethodDelete, f.last(t).Method)
	assert.JSONEq(t, `{"role_name":"Editor"}`, string(f.last(t).Body))
}

func TestRemoveRole_BaselineNeverSent(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, okEmpty)

	err := New(srv.URL, time.Second).RemoveRole(context.Background(), 5, models.BaselineRole)
	assert.ErrorIs(t, err, ErrBaselineRole)
	assert.Equal(t, 0, f.count())
}

func TestProfileEndpoints(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, okEmpty)
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.UpdateProfile(ctx, models.ProfileInput{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"}))
	assert.Equal(t, "/profile", f.last(t).Path)
	assert.JSONEq(t, `{"name":"Ada","surname":"Lovelace","email":"ada@example.com"}`, string(f.last(t).Body))

	require.NoError(t, c.ChangePassword(ctx, models.PasswordInput{CurrentPassword: "old", NewPassword: "new"}))
	assert.Equal(t, "/profile/password", f.last(t).Path)
	assert.JSONEq(t, `{"current_password":"old","new_password":"new"}`, string(f.last(t).Body))
}

// =====================================================================
// Caching
// =====================================================================

func TestCache_GetServedFromCacheUntilMutation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method == http.MethodGet {
			io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Acme"}]}`)
			return
		}
		io.WriteString(w, okEmpty)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second).WithCache(newMemCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ps, err := c.Publishers(ctx)
		require.NoError(t, err)
		require.Len(t, ps, 1)
	}
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, c.DeletePublisher(ctx, 1))
	_, err := c.Publishers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCache_ScopedByToken(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"success":false,"message":"token expired"}`)
			return
		}
		io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Acme"}]}`)
	}))
	defer srv.Close()

	base := New(srv.URL, time.Second).WithCache(newMemCache())
	ctx := context.Background()

	ps, err := base.WithToken("good").Publishers(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	_, err = base.WithToken("stale").Publishers(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	_, err = base.WithToken("good").Publishers(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer good", "Bearer stale"}, seen)
}

func TestCache_MutationInvalidatesEveryToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits.Add(1)
			io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Acme"}]}`)
			return
		}
		io.WriteString(w, okEmpty)
	}))
	defer srv.Close()

	base := New(srv.URL, time.Second).WithCache(newMemCache())
	alice, bob := base.WithToken("alice"), base.WithToken("bob")
	ctx := context.Background()

	_, err := alice.Publishers(ctx)
	require.NoError(t, err)
	_, err = bob.Publishers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	require.NoError(t, alice.DeletePublisher(ctx, 1))
	_, err = bob.Publishers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCache_FailuresNotCached(t *testing.T) {
	f, srv := newFakeUpstream(t, http.StatusOK, `{"success":false,"message":"nope"}`)
	cache := newMemCache()
	c := New(srv.URL, time.Second).WithCache(cache)

	_, err := c.Questions(context.Background())
	require.Error(t, err)
	_, err = c.Questions(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, f.count())
	assert.Empty(t, cache.data)
}
