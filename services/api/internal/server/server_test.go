package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"elib/internal/ratelimit"
	"elib/pkg/storage"
	"elib/pkg/store"
	"elib/services/api/internal/app"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes []string
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ storage.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PublicURL(key string) string {
	return "http://minio.test/elib/" + key
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testEnv struct {
	ts      *httptest.Server
	objects *memObjects
	staging *storage.Staging
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789", time.Hour, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	objects := &memObjects{objects: map[string][]byte{}}
	core, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Assets:   storage.NewTransferrer(objects, time.Second),
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	staging, err := storage.NewStaging(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	cfg := Config{App: core, Staging: staging, MaxUploadBytes: 1 << 20}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, objects: objects, staging: staging}
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) (int, map[string]any) {
	t.Helper()
	status, raw := e.doRaw(t, method, path, token, contentType, body)
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return status, out
}

func (e *testEnv) doRaw(t *testing.T, method, path, token, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func (e *testEnv) register(t *testing.T, name, email, role string) (string, string) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/users/register", "", "application/json", jsonBody(t, map[string]string{
		"name": name, "email": email, "password": "secret-pass", "role": role,
	}))
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, status, body)
	}
	user := body["user"].(map[string]any)
	return body["accessToken"].(string), user["id"].(string)
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return mw.FormDataContentType(), &buf
}

var pngCover = formFile{field: "coverImage", name: "cover.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nfake")}

func (e *testEnv) createBook(t *testing.T, token, title string, files ...formFile) map[string]any {
	t.Helper()
	ct, body := multipartBody(t, map[string]string{
		"title": title, "genre": "Sci-Fi", "description": "Desert planet",
	}, files...)
	status, resp := e.do(t, http.MethodPost, "/api/books/add", token, ct, body)
	if status != http.StatusCreated {
		t.Fatalf("create book: status %d body %v", status, resp)
	}
	if resp["message"] != "Book created successfully" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	return resp["book"].(map[string]any)
}

func (e *testEnv) stagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.staging.Dir())
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(entries))
	}
}

func TestRootHealthAndFallbacks(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/", "", "", nil)
	if status != http.StatusOK || body["message"] != "Welcome to the elib APIs" {
		t.Fatalf("root: %d %v", status, body)
	}
	status, body = env.do(t, http.MethodGet, "/healthz", "", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", status, body)
	}
	status, body = env.do(t, http.MethodGet, "/nope", "", "", nil)
	if status != http.StatusNotFound || body["status"] != "error" || body["statusCode"] != float64(404) {
		t.Fatalf("unknown route: %d %v", status, body)
	}
	status, body = env.do(t, http.MethodPut, "/api/books", "", "", nil)
	if status != http.StatusMethodNotAllowed || body["statusCode"] != float64(405) {
		t.Fatalf("wrong method: %d %v", status, body)
	}
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		header string
		want   int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "Unauthorized: No token provided"},
		{"wrong scheme", "Basic abc", http.StatusBadRequest, "Invalid Authorization header format"},
		{"empty token", "Bearer ", http.StatusBadRequest, "Invalid Authorization header format"},
		{"bad signature", "Bearer not-a-jwt", http.StatusForbidden, "Invalid token"},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/rate/book/abc", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != tc.want || body["message"] != tc.msg {
			t.Fatalf("%s: got %d %v", tc.name, resp.StatusCode, body)
		}
	}
}

func TestAccountFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _ := env.register(t, "Ann", "ann@example.com", "author")

	status, body := env.do(t, http.MethodPost, "/api/users/register", "", "application/json", jsonBody(t, map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "x", "role": "author",
	}))
	if status != http.StatusBadRequest || body["message"] != "User already exists" {
		t.Fatalf("duplicate register: %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/users/login", "", "application/json", jsonBody(t, map[string]string{
		"email": "ann@example.com", "password": "secret-pass",
	}))
	if status != http.StatusOK || body["accessToken"] == "" {
		t.Fatalf("login: %d %v", status, body)
	}
	status, _ = env.do(t, http.MethodPost, "/api/users/login", "", "application/json", jsonBody(t, map[string]string{
		"email": "ann@example.com", "password": "wrong",
	}))
	if status != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", status)
	}
	status, _ = env.do(t, http.MethodPost, "/api/users/login", "", "application/json", jsonBody(t, map[string]string{
		"email": "nobody@example.com", "password": "x",
	}))
	if status != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", status)
	}
	status, body = env.do(t, http.MethodPost, "/api/users/login", "", "application/json", strings.NewReader("{"))
	if status != http.StatusBadRequest || body["message"] != "Invalid JSON body" {
		t.Fatalf("bad json: %d %v", status, body)
	}

	status, _ = env.do(t, http.MethodPost, "/api/users/logout", token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("logout: %d", status)
	}
	status, body = env.do(t, http.MethodGet, "/api/rate/book/x", token, "", nil)
	if status != http.StatusUnauthorized || body["message"] != "Token revoked" {
		t.Fatalf("revoked token: %d %v", status, body)
	}
}

func TestBookLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	author, authorID := env.register(t, "Ann", "ann@example.com", "author")
	reader, _ := env.register(t, "Bob", "bob@example.com", "user")

	pdf := formFile{field: "file", name: "dune.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}
	book := env.createBook(t, author, "Dune", pngCover, pdf)
	bookID := book["id"].(string)
	if book["author"].(map[string]any)["id"] != authorID {
		t.Fatalf("unexpected author: %v", book["author"])
	}
	if !strings.HasPrefix(book["coverImage"].(string), "http://minio.test/elib/book-covers/") {
		t.Fatalf("unexpected cover url: %v", book["coverImage"])
	}
	if _, ok := book["coverImageId"]; ok {
		t.Fatalf("remote id must not be serialized")
	}
	if env.objects.count() != 2 {
		t.Fatalf("expected 2 stored objects, got %d", env.objects.count())
	}
	env.stagingEmpty(t)

	// Non-owner cannot update.
	ct, body := multipartBody(t, map[string]string{"title": "Mine now"})
	status, resp := env.do(t, http.MethodPatch, "/api/books/update/"+bookID, reader, ct, body)
	if status != http.StatusForbidden {
		t.Fatalf("non-owner update: %d %v", status, resp)
	}

	ct, body = multipartBody(t, map[string]string{"title": "Dune Messiah"})
	status, resp = env.do(t, http.MethodPatch, "/api/books/update/"+bookID, author, ct, body)
	if status != http.StatusOK || resp["book"].(map[string]any)["title"] != "Dune Messiah" {
		t.Fatalf("update: %d %v", status, resp)
	}

	status, resp = env.do(t, http.MethodGet, "/api/books/"+bookID, "", "", nil)
	if status != http.StatusOK || resp["book"].(map[string]any)["views"] != float64(1) {
		t.Fatalf("details: %d %v", status, resp)
	}

	status, resp = env.do(t, http.MethodPatch, "/api/books/"+bookID+"/like", reader, "", nil)
	if status != http.StatusOK || resp["message"] != "Book liked successfully" || resp["likesCount"] != float64(1) {
		t.Fatalf("like: %d %v", status, resp)
	}
	status, resp = env.do(t, http.MethodPatch, "/api/books/"+bookID+"/like", reader, "", nil)
	if status != http.StatusOK || resp["message"] != "Book unliked successfully" || resp["likesCount"] != float64(0) {
		t.Fatalf("unlike: %d %v", status, resp)
	}
	status, _ = env.do(t, http.MethodPatch, "/api/books/not-a-uuid/like", reader, "", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("malformed like id: expected 400, got %d", status)
	}

	status, _ = env.do(t, http.MethodDelete, "/api/books/"+bookID, reader, "", nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-owner delete: expected 403, got %d", status)
	}
	status, resp = env.do(t, http.MethodDelete, "/api/books/"+bookID, author, "", nil)
	if status != http.StatusOK || resp["message"] != "Book deleted successfully" {
		t.Fatalf("delete: %d %v", status, resp)
	}
	if env.objects.count() != 0 {
		t.Fatalf("expected remote assets removed, %d left", env.objects.count())
	}
	status, _ = env.do(t, http.MethodGet, "/api/books/"+bookID, "", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleted book: expected 404, got %d", status)
	}
}

func TestCreateBookValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	author, _ := env.register(t, "Ann", "ann@example.com", "author")

	ct, body := multipartBody(t, map[string]string{"title": "Dune", "genre": "Sci-Fi", "description": "d"})
	status, resp := env.do(t, http.MethodPost, "/api/books/add", author, ct, body)
	if status != http.StatusBadRequest || resp["message"] != "Cover image is required." {
		t.Fatalf("missing cover: %d %v", status, resp)
	}

	ct, body = multipartBody(t, map[string]string{"title": "Dune"}, pngCover)
	status, resp = env.do(t, http.MethodPost, "/api/books/add", author, ct, body)
	if status != http.StatusBadRequest || resp["message"] != "Title, genre and description are required." {
		t.Fatalf("missing fields: %d %v", status, resp)
	}
	if env.objects.count() != 0 {
		t.Fatalf("nothing should be uploaded on validation failure")
	}
	env.stagingEmpty(t)

	big := formFile{field: "coverImage", name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), (1<<20)+1)}
	ct, body = multipartBody(t, map[string]string{"title": "Dune", "genre": "Sci-Fi", "description": "d"}, big)
	status, _ = env.do(t, http.MethodPost, "/api/books/add", author, ct, body)
	if status != http.StatusBadRequest {
		t.Fatalf("oversized file: expected 400, got %d", status)
	}
	env.stagingEmpty(t)
}

func TestListBooksPagination(t *testing.T) {
	env := newTestEnv(t, nil)
	author, _ := env.register(t, "Ann", "ann@example.com", "author")
	for i := 0; i < 3; i++ {
		env.createBook(t, author, "Book", pngCover)
	}

	status, resp := env.do(t, http.MethodGet, "/api/books?page=2&limit=2", "", "", nil)
	if status != http.StatusOK || resp["message"] != "Books listed successfully" {
		t.Fatalf("list: %d %v", status, resp)
	}
	if n := len(resp["books"].([]any)); n != 1 {
		t.Fatalf("expected 1 book on page 2, got %d", n)
	}
	page := resp["pagination"].(map[string]any)
	if page["totalBooks"] != float64(3) || page["totalPages"] != float64(2) || page["currentPage"] != float64(2) {
		t.Fatalf("unexpected pagination: %v", page)
	}

	status, resp = env.do(t, http.MethodGet, "/api/books?page=abc", "", "", nil)
	page = resp["pagination"].(map[string]any)
	if status != http.StatusOK || page["currentPage"] != float64(1) || page["pageSize"] != float64(10) {
		t.Fatalf("defaults: %d %v", status, page)
	}
}

func TestRatingsAndInsights(t *testing.T) {
	env := newTestEnv(t, nil)
	author, authorID := env.register(t, "Ann", "ann@example.com", "author")
	reader, _ := env.register(t, "Bob", "bob@example.com", "user")
	bookID := env.createBook(t, author, "Dune", pngCover)["id"].(string)

	status, resp := env.do(t, http.MethodGet, "/api/insight/averageRating/"+authorID, "", "", nil)
	if status != http.StatusOK || resp["averageRating"] != float64(0) || resp["totalRatings"] != float64(0) {
		t.Fatalf("empty average: %d %v", status, resp)
	}
	status, resp = env.do(t, http.MethodGet, "/api/insight/recentRating/"+authorID, "", "", nil)
	if status != http.StatusOK || resp["recentRating"] != nil {
		t.Fatalf("empty recent: %d %v", status, resp)
	}

	for _, score := range []int{4, 2} {
		status, resp = env.do(t, http.MethodPost, "/api/rate/"+bookID, reader, "application/json",
			jsonBody(t, map[string]any{"rating": score, "comment": "ok"}))
		if status != http.StatusOK || resp["message"] != "Rating added successfully" {
			t.Fatalf("add rating: %d %v", status, resp)
		}
	}
	ratingID := resp["rating"].(map[string]any)["id"].(string)

	status, resp = env.do(t, http.MethodPost, "/api/rate/"+bookID, reader, "application/json",
		jsonBody(t, map[string]any{"comment": "no score"}))
	if status != http.StatusBadRequest {
		t.Fatalf("missing rating: %d %v", status, resp)
	}
	status, _ = env.do(t, http.MethodPost, "/api/rate/"+bookID, reader, "application/json",
		jsonBody(t, map[string]any{"rating": 9, "comment": "x"}))
	if status != http.StatusInternalServerError {
		t.Fatalf("out of range rating: expected 500, got %d", status)
	}

	status, raw := env.doRaw(t, http.MethodGet, "/api/rate/book/"+bookID, reader, "", nil)
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil || status != http.StatusOK {
		t.Fatalf("book ratings: %d %v %s", status, err, raw)
	}
	if len(list) != 2 || list[0]["rating"] != float64(4) {
		t.Fatalf("expected ratings sorted desc, got %v", list)
	}

	status, resp = env.do(t, http.MethodGet, "/api/rate/author/"+authorID, reader, "", nil)
	if status != http.StatusOK || resp["totalRatings"] != float64(2) {
		t.Fatalf("author ratings: %d %v", status, resp)
	}

	status, resp = env.do(t, http.MethodGet, "/api/insight/averageRating/"+authorID, "", "", nil)
	if resp["averageRating"] != float64(3) || resp["totalRatings"] != float64(2) {
		t.Fatalf("average: %d %v", status, resp)
	}
	status, resp = env.do(t, http.MethodGet, "/api/insight/heighestRatedBook/"+authorID, "", "", nil)
	if status != http.StatusOK || resp["highestAvgRatedBook"] != bookID || resp["averageRating"] != float64(3) {
		t.Fatalf("highest: %d %v", status, resp)
	}
	status, resp = env.do(t, http.MethodGet, "/api/insight/recentRating/"+authorID, "", "", nil)
	recent, ok := resp["recentRating"].(map[string]any)
	if status != http.StatusOK || !ok || recent["bookTitle"] != "Dune" || recent["reviewerEmail"] != "bob@example.com" {
		t.Fatalf("recent: %d %v", status, resp)
	}

	status, resp = env.do(t, http.MethodDelete, "/api/rate/"+bookID+"/"+ratingID, author, "", nil)
	if status != http.StatusOK || resp["message"] != "Rating deleted successfully" {
		t.Fatalf("foreign delete still reports success: %d %v", status, resp)
	}
	status, _ = env.do(t, http.MethodDelete, "/api/rate/"+bookID+"/"+ratingID, reader, "", nil)
	if status != http.StatusOK {
		t.Fatalf("delete rating: %d", status)
	}
	_, resp = env.do(t, http.MethodGet, "/api/rate/author/"+authorID, reader, "", nil)
	if resp["totalRatings"] != float64(1) {
		t.Fatalf("expected one rating left, got %v", resp["totalRatings"])
	}
}

func TestAddRatingAcceptsNumericStrings(t *testing.T) {
	env := newTestEnv(t, nil)
	author, _ := env.register(t, "Ann", "ann@example.com", "author")
	reader, _ := env.register(t, "Bob", "bob@example.com", "user")
	bookID := env.createBook(t, author, "Dune", pngCover)["id"].(string)

	tests := []struct {
		name   string
		rating any
		want   int
		score  float64
	}{
		{"number", 3, http.StatusOK, 3},
		{"numeric string", "5", http.StatusOK, 5},
		{"whole float", 4.0, http.StatusOK, 4},
		{"fraction", 4.5, http.StatusBadRequest, 0},
		{"word", "five", http.StatusBadRequest, 0},
		{"string out of range", "9", http.StatusInternalServerError, 0},
	}
	for _, tc := range tests {
		status, resp := env.do(t, http.MethodPost, "/api/rate/"+bookID, reader, "application/json",
			jsonBody(t, map[string]any{"rating": tc.rating, "comment": "ok"}))
		if status != tc.want {
			t.Fatalf("%s: status %d body %v", tc.name, status, resp)
		}
		if tc.want == http.StatusOK && resp["rating"].(map[string]any)["rating"] != tc.score {
			t.Fatalf("%s: stored rating %v, want %v", tc.name, resp["rating"], tc.score)
		}
	}
}

func TestErrorStackOnlyOutsideProduction(t *testing.T) {
	dev := newTestEnv(t, nil)
	_, body := dev.do(t, http.MethodGet, "/api/books/missing-id", "", "", nil)
	if _, ok := body["errorStack"]; !ok {
		t.Fatalf("expected errorStack in development, got %v", body)
	}

	prod := newTestEnv(t, func(c *Config) { c.Production = true })
	status, body := prod.do(t, http.MethodGet, "/api/books/missing-id", "", "", nil)
	if status != http.StatusNotFound || body["message"] != "Book not found." {
		t.Fatalf("not found: %d %v", status, body)
	}
	if _, ok := body["errorStack"]; ok {
		t.Fatalf("errorStack must be hidden in production")
	}
}

func TestRegisterRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test", 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	env := newTestEnv(t, func(c *Config) { c.RegisterLimiter = limiter })

	env.register(t, "Ann", "ann@example.com", "user")
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/api/users/register", jsonBody(t, map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "x", "role": "user",
	}))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}
}

func TestRoutesTableIsServed(t *testing.T) {
	env := newTestEnv(t, nil)
	id := "6f1c2a44-5b0e-4d8e-9a63-0c8f8f1d2e77"
	replacer := strings.NewReplacer("{bookId}", id, "{authorId}", id, "{ratingId}", id)
	for _, route := range Routes {
		path := replacer.Replace(route.Path)
		status, body := env.do(t, route.Method, path, "", "", nil)
		msg, _ := body["message"].(string)
		if status == http.StatusMethodNotAllowed || strings.HasPrefix(msg, "Route ") {
			t.Fatalf("%s %s not dispatched: %d %v", route.Method, route.Path, status, body)
		}
	}
}
