package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"call-router/internal/users"

	"github.com/gin-gonic/gin"
)

func newTestRouter(repo users.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := Handlers{Users: users.NewService(repo)}

	r := gin.New()
	admin := r.Group("/api/admin")
	admin.GET("/users", h.ListUsers)
	admin.GET("/users/:user_id", h.GetUser)
	admin.PUT("/users/:user_id", h.UpdateUser)
	return r
}

func seeded() *users.MemoryRepo {
	return users.NewMemoryRepo(users.User{
		UserID:       "u1",
		PhoneNumber:  "+15551234567",
		BusinessName: "Acme Plumbing",
		Industry:     "plumbing",
		CreatedAt:    time.Unix(1700000000, 0).UTC(),
	})
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListUsers(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodGet, "/api/admin/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Users []users.User `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].UserID != "u1" {
		t.Fatalf("unexpected users: %+v", resp.Users)
	}
}

func TestListUsers_ByPhone(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodGet, "/api/admin/users?phone=%2B15559999999", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"users":[]`) {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/admin/users?phone=%2B15551234567", "")
	if !strings.Contains(w.Body.String(), `"user_id":"u1"`) {
		t.Fatalf("expected u1, got %s", w.Body.String())
	}
}

func TestGetUser_NotFound(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodGet, "/api/admin/users/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateUser(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodPut, "/api/admin/users/u1", `{"business_name":"Acme","industry":"plumbing","service_types":["drains"],"business_qa":{"Hours?":"24/7"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		User    users.User `json:"user"`
		Message string     `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.BusinessName != "Acme" || resp.User.CallbackWindow != "soon" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if len(resp.User.ServiceTypes) != 1 || resp.User.BusinessQA["Hours?"] != "24/7" {
		t.Fatalf("unexpected json fields: %+v", resp.User)
	}
}

func TestUpdateUser_Validation(t *testing.T) {
	r := newTestRouter(seeded())

	cases := []string{
		`{"business_name":"Acme"}`,
		`{"business_name":"Acme","industry":"x","service_types":"drains"}`,
		`{"business_name":"Acme","industry":"x","business_qa":["a"]}`,
		`not json`,
	}
	for _, body := range cases {
		w := do(r, http.MethodPut, "/api/admin/users/u1", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestUpdateUser_ValidationMessage(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodPut, "/api/admin/users/u1", `{"business_name":"Acme"}`)
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "business_name and industry are required" {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}
}

type brokenRepo struct{ users.Repository }

func (brokenRepo) List(ctx context.Context) ([]users.User, error) {
	return nil, errors.New("connection reset")
}

func TestListUsers_StoreFailure(t *testing.T) {
	r := newTestRouter(brokenRepo{})

	w := do(r, http.MethodGet, "/api/admin/users", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(r, http.MethodPut, "/api/admin/users/nope", `{"business_name":"a","industry":"b"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
