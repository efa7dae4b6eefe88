package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"todo_api/internal/apitest"
	"todo_api/internal/domain"
	"todo_api/internal/http/middleware"

	"github.com/golang-jwt/jwt/v5"
)

type response struct {
	Code    int
	Body    []byte
	Cookies []*http.Cookie
}

func call(t *testing.T, env *apitest.Env, method, path, body string, session *http.Cookie) response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return response{Code: w.Code, Body: w.Body.Bytes(), Cookies: w.Result().Cookies()}
}

func decodeTasks(t *testing.T, r response) []domain.Task {
	t.Helper()
	var tasks []domain.Task
	if err := json.Unmarshal(r.Body, &tasks); err != nil {
		t.Fatalf("decode tasks %q: %v", r.Body, err)
	}
	return tasks
}

func errorOf(t *testing.T, r response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		t.Fatalf("decode error %q: %v", r.Body, err)
	}
	return body.Error
}

// signIn registers the account and returns its session cookie.
func signIn(t *testing.T, env *apitest.Env, username, email, password string) *http.Cookie {
	t.Helper()
	r := call(t, env, http.MethodPost, "/auth/sign-up",
		`{"username":"`+username+`","email":"`+email+`","password":"`+password+`"}`, nil)
	if r.Code != http.StatusCreated {
		t.Fatalf("sign-up status = %d body=%s", r.Code, r.Body)
	}
	r = call(t, env, http.MethodPost, "/auth/sign-in", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	if r.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d body=%s", r.Code, r.Body)
	}
	for _, c := range r.Cookies {
		if c.Name == middleware.CookieName {
			return &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	t.Fatalf("sign-in did not set %s", middleware.CookieName)
	return nil
}

func TestScenario_RegisterLoginCreate(t *testing.T) {
	env := apitest.NewServer(t)

	r := call(t, env, http.MethodPost, "/auth/sign-up", `{"username":"alice","email":"a@x.com","password":"pw1"}`, nil)
	if r.Code != http.StatusCreated {
		t.Fatalf("sign-up = %d", r.Code)
	}
	if strings.Contains(string(r.Body), "pw1") || strings.Contains(string(r.Body), "$2") {
		t.Fatalf("sign-up echoed credentials: %s", r.Body)
	}

	r = call(t, env, http.MethodPost, "/auth/sign-in", `{"email":"a@x.com","password":"wrong"}`, nil)
	if r.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", r.Code)
	}

	r = call(t, env, http.MethodPost, "/auth/sign-in", `{"email":"a@x.com","password":"pw1"}`, nil)
	if r.Code != http.StatusOK {
		t.Fatalf("sign-in = %d", r.Code)
	}
	var session *http.Cookie
	for _, c := range r.Cookies {
		if c.Name == middleware.CookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("no session cookie")
	}
	if !session.HttpOnly || session.MaxAge != 3600 || session.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie attributes: %+v", session)
	}
	if !strings.Contains(string(r.Body), `"success":true`) {
		t.Fatalf("sign-in body = %s", r.Body)
	}
	session = &http.Cookie{Name: session.Name, Value: session.Value}

	r = call(t, env, http.MethodGet, "/tasks", "", session)
	if r.Code != http.StatusOK || strings.TrimSpace(string(r.Body)) != "[]" {
		t.Fatalf("initial list = %d %s", r.Code, r.Body)
	}

	r = call(t, env, http.MethodPost, "/tasks", `{"text":"buy milk","isChecked":false}`, session)
	if r.Code != http.StatusOK {
		t.Fatalf("create = %d %s", r.Code, r.Body)
	}
	tasks := decodeTasks(t, r)
	if len(tasks) != 1 || tasks[0].ID != 1 || tasks[0].Text != "buy milk" || tasks[0].IsChecked {
		t.Fatalf("tasks = %+v", tasks)
	}
	if !strings.Contains(string(r.Body), `"ischecked":false`) {
		t.Fatalf("wire format changed: %s", r.Body)
	}
}

func TestTasks_RequireSession(t *testing.T) {
	env := apitest.NewServer(t)

	r := call(t, env, http.MethodGet, "/tasks", "", nil)
	if r.Code != http.StatusUnauthorized || errorOf(t, r) != "no token" {
		t.Fatalf("no cookie = %d %s", r.Code, r.Body)
	}

	r = call(t, env, http.MethodGet, "/tasks", "", &http.Cookie{Name: middleware.CookieName, Value: "garbage"})
	if r.Code != http.StatusUnauthorized || errorOf(t, r) != "invalid token" {
		t.Fatalf("bad cookie = %d %s", r.Code, r.Body)
	}
}

func TestTasks_OwnershipIsolation(t *testing.T) {
	env := apitest.NewServer(t)
	alice := signIn(t, env, "alice", "a@x.com", "pw1")
	bob := signIn(t, env, "bob", "b@x.com", "pw2")

	r := call(t, env, http.MethodPost, "/tasks", `{"text":"alice task","isChecked":false}`, alice)
	aliceTask := decodeTasks(t, r)[0]

	r = call(t, env, http.MethodGet, "/tasks", "", bob)
	if got := decodeTasks(t, r); len(got) != 0 {
		t.Fatalf("bob sees %+v", got)
	}

	// bob cannot update alice's task
	path := "/tasks/" + itoa(aliceTask.ID)
	r = call(t, env, http.MethodPut, path, `{"currentData":true}`, bob)
	if r.Code != http.StatusNoContent {
		t.Fatalf("foreign update = %d", r.Code)
	}
	if got, _ := env.Tasks.Get(aliceTask.ID); got.IsChecked {
		t.Fatalf("bob toggled alice's task")
	}

	// nor delete it, and gets his own (empty) list back
	r = call(t, env, http.MethodDelete, "/deleteTask", `{"id":`+itoa(aliceTask.ID)+`}`, bob)
	if r.Code != http.StatusOK || len(decodeTasks(t, r)) != 0 {
		t.Fatalf("foreign delete = %d %s", r.Code, r.Body)
	}
	if _, ok := env.Tasks.Get(aliceTask.ID); !ok {
		t.Fatalf("bob deleted alice's task")
	}
}

func TestUpdateTask_DispatchByType(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")
	task := decodeTasks(t, call(t, env, http.MethodPost, "/tasks", `{"text":"old","isChecked":false}`, s))[0]
	path := "/tasks/" + itoa(task.ID)

	r := call(t, env, http.MethodPut, path, `{"currentData":true}`, s)
	if r.Code != http.StatusNoContent {
		t.Fatalf("bool update = %d", r.Code)
	}
	got, _ := env.Tasks.Get(task.ID)
	if !got.IsChecked || got.Text != "old" {
		t.Fatalf("after bool update: %+v", got)
	}

	r = call(t, env, http.MethodPut, path, `{"currentData":"new"}`, s)
	if r.Code != http.StatusNoContent {
		t.Fatalf("string update = %d", r.Code)
	}
	got, _ = env.Tasks.Get(task.ID)
	if got.Text != "new" || !got.IsChecked {
		t.Fatalf("after string update: %+v", got)
	}

	for _, body := range []string{
		`{"currentData":1}`,
		`{"currentData":{"text":"x"}}`,
		`{"currentData":["x"]}`,
		`{"currentData":null}`,
		`{}`,
		`"true"`,
	} {
		r = call(t, env, http.MethodPut, path, body, s)
		if r.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", body, r.Code)
		}
		if errorOf(t, r) != "invalid data format" {
			t.Fatalf("%s: error = %s", body, r.Body)
		}
	}
	after, _ := env.Tasks.Get(task.ID)
	if after != got {
		t.Fatalf("rejected payload changed the row: %+v -> %+v", got, after)
	}

	r = call(t, env, http.MethodPut, "/tasks/abc", `{"currentData":true}`, s)
	if r.Code != http.StatusBadRequest {
		t.Fatalf("non numeric id = %d", r.Code)
	}

	r = call(t, env, http.MethodPut, "/tasks/999", `{"currentData":"ghost"}`, s)
	if r.Code != http.StatusNoContent {
		t.Fatalf("missing id update = %d", r.Code)
	}
}

func TestDeleteTask_RefreshedList(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")
	call(t, env, http.MethodPost, "/tasks", `{"text":"one","isChecked":false}`, s)
	tasks := decodeTasks(t, call(t, env, http.MethodPost, "/tasks", `{"text":"two","isChecked":true}`, s))
	if len(tasks) != 2 || tasks[0].Text != "one" || tasks[1].Text != "two" {
		t.Fatalf("tasks = %+v", tasks)
	}

	r := call(t, env, http.MethodDelete, "/deleteTask", `{"id":`+itoa(tasks[0].ID)+`}`, s)
	left := decodeTasks(t, r)
	if len(left) != 1 || left[0].Text != "two" {
		t.Fatalf("after delete = %+v", left)
	}

	r = call(t, env, http.MethodDelete, "/deleteTask", `{"id":12345}`, s)
	if r.Code != http.StatusOK || len(decodeTasks(t, r)) != 1 {
		t.Fatalf("missing id delete = %d %s", r.Code, r.Body)
	}

	r = call(t, env, http.MethodDelete, "/deleteTask", `{}`, s)
	if r.Code != http.StatusBadRequest {
		t.Fatalf("delete without id = %d", r.Code)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")

	for _, body := range []string{`{"isChecked":true}`, `not json`} {
		r := call(t, env, http.MethodPost, "/tasks", body, s)
		if r.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", body, r.Code)
		}
	}
}

func TestTasks_StoreFailure(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")
	env.Tasks.Fail()

	r := call(t, env, http.MethodPost, "/tasks", `{"text":"x","isChecked":false}`, s)
	if r.Code != http.StatusInternalServerError || errorOf(t, r) != "internal error" {
		t.Fatalf("create on failed store = %d %s", r.Code, r.Body)
	}
	r = call(t, env, http.MethodGet, "/tasks", "", s)
	if r.Code != http.StatusInternalServerError {
		t.Fatalf("list on failed store = %d", r.Code)
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := apitest.NewServer(t)
	body := `{"username":"alice","email":"a@x.com","password":"pw1"}`

	if r := call(t, env, http.MethodPost, "/auth/sign-up", body, nil); r.Code != http.StatusCreated {
		t.Fatalf("first = %d", r.Code)
	}
	r := call(t, env, http.MethodPost, "/auth/sign-up", body, nil)
	if r.Code != http.StatusBadRequest || errorOf(t, r) != "email already taken" {
		t.Fatalf("second = %d %s", r.Code, r.Body)
	}
	if env.Users.Count() != 1 {
		t.Fatalf("users = %d; want 1", env.Users.Count())
	}
}

func TestSignIn_UnknownUser(t *testing.T) {
	env := apitest.NewServer(t)
	r := call(t, env, http.MethodPost, "/auth/sign-in", `{"email":"nobody@x.com","password":"pw"}`, nil)
	if r.Code != http.StatusBadRequest || errorOf(t, r) != "user not found" {
		t.Fatalf("unknown user = %d %s", r.Code, r.Body)
	}
}

func TestLogoutAndCheckAuth(t *testing.T) {
	env := apitest.NewServer(t)

	r := call(t, env, http.MethodGet, "/check-auth", "", nil)
	if r.Code != http.StatusOK || !strings.Contains(string(r.Body), `"authenticated":false`) {
		t.Fatalf("anonymous check = %d %s", r.Code, r.Body)
	}

	s := signIn(t, env, "alice", "a@x.com", "pw1")
	r = call(t, env, http.MethodGet, "/check-auth", "", s)
	if !strings.Contains(string(r.Body), `"authenticated":true`) {
		t.Fatalf("signed in check = %s", r.Body)
	}

	tampered := &http.Cookie{Name: s.Name, Value: s.Value + "x"}
	r = call(t, env, http.MethodGet, "/check-auth", "", tampered)
	if r.Code != http.StatusOK || !strings.Contains(string(r.Body), `"authenticated":false`) {
		t.Fatalf("tampered check = %d %s", r.Code, r.Body)
	}

	// logout works with and without a session
	for _, c := range []*http.Cookie{s, nil} {
		r = call(t, env, http.MethodPost, "/auth/logout", "", c)
		if r.Code != http.StatusOK {
			t.Fatalf("logout = %d", r.Code)
		}
		var cleared bool
		for _, ck := range r.Cookies {
			if ck.Name == middleware.CookieName && ck.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Fatalf("logout did not clear the cookie")
		}
	}
}

func TestCheckAuth_Expired(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")

	// a token signed with the right secret but already past its expiry
	expired := expiredToken(t, time.Now().Add(-2*time.Hour))
	r := call(t, env, http.MethodGet, "/check-auth", "", &http.Cookie{Name: s.Name, Value: expired})
	if !strings.Contains(string(r.Body), `"authenticated":false`) {
		t.Fatalf("expired check = %s", r.Body)
	}
	r = call(t, env, http.MethodGet, "/tasks", "", &http.Cookie{Name: s.Name, Value: expired})
	if r.Code != http.StatusUnauthorized || errorOf(t, r) != "token expired" {
		t.Fatalf("expired list = %d %s", r.Code, r.Body)
	}
}

func TestAPIPrefix(t *testing.T) {
	env := apitest.NewServer(t)
	s := signIn(t, env, "alice", "a@x.com", "pw1")

	r := call(t, env, http.MethodGet, "/api/tasks", "", s)
	if r.Code != http.StatusOK {
		t.Fatalf("/api/tasks = %d", r.Code)
	}
	r = call(t, env, http.MethodGet, "/", "", nil)
	if !strings.Contains(string(r.Body), "API is working!") {
		t.Fatalf("index = %s", r.Body)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func expiredToken(t *testing.T, issuedAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": 1,
		"iat":     issuedAt.Unix(),
		"nbf":     issuedAt.Unix(),
		"exp":     issuedAt.Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apitest.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
