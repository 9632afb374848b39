package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"fixversity/internal/domain/identity"
	"fixversity/internal/infrastructure/auth"
	"fixversity/internal/infrastructure/cache"
	"fixversity/internal/infrastructure/notify"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/infrastructure/persistence/sqlite/repository"
	"fixversity/internal/infrastructure/persistence/sqlite/uow"
	"fixversity/internal/infrastructure/storage"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/usecase/issues"
)

type apiFixture struct {
	server *httptest.Server
	roles  *repository.RoleRepository
	notes  *notify.Recorder
}

func setupAPI(t *testing.T) apiFixture {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "api.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	tokens, err := auth.NewTokenIssuer("test-secret", "fixversity", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	issueRepo := repository.NewIssueRepository(db)
	profiles := repository.NewProfileRepository(db)
	roles := repository.NewRoleRepository(db)
	authService := auth.NewService(repository.NewAccountRepository(db), profiles, roles, uow.NewUnitOfWork(db), tokens, time.Hour)

	filesDir := t.TempDir()
	queries := query.NewClient(cache.NewMemoryCache(), 0)
	notes := &notify.Recorder{}
	issueService := issues.NewService(issues.Deps{
		Issues:   issueRepo,
		Profiles: profiles,
		Roles:    roles,
		Queries:  queries,
		Storage:  storage.NewLocalBucket(filesDir, "issue-images", "http://files.test"),
		Notifier: notes,
	})
	authService.AddRoleListener(issues.NewWorkersInvalidator(queries))

	server := NewServer(Deps{
		Auth:     authService,
		Issues:   issueService,
		Profiles: profiles,
		Roles:    roles,
		FilesDir: filesDir,
	})
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return apiFixture{server: ts, roles: roles, notes: notes}
}

func (f apiFixture) do(t *testing.T, method string, path string, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

// signUpAndIn registers an account and returns its user id and access token.
func (f apiFixture) signUpAndIn(t *testing.T, email string, role string) (string, string) {
	t.Helper()

	status, body := f.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":     email,
		"password":  "correct-horse",
		"full_name": strings.Split(email, "@")[0],
		"role":      role,
	})
	if status != http.StatusCreated {
		t.Fatalf("signup status = %d body = %s", status, body)
	}
	status, body = f.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	if status != http.StatusOK {
		t.Fatalf("signin status = %d body = %s", status, body)
	}
	var session identity.Session
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.User.ID, session.AccessToken
}

func (f apiFixture) signUpAdmin(t *testing.T, email string) (string, string) {
	t.Helper()
	id, token := f.signUpAndIn(t, email, "student")
	if err := f.roles.SetRole(context.Background(), id, identity.RoleAdmin); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	return id, token
}

func decodeInto[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func newIssueBody() map[string]any {
	return map[string]any{
		"title":       "Leaking tap",
		"description": "Tap in the second floor washroom",
		"category":    "plumbing",
		"building":    "Science Hall",
		"room_number": "204",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupAPI(t)

	status, body := f.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("/health = %d %s", status, body)
	}

	status, body = f.do(t, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("/metrics status = %d", status)
	}
	if !strings.Contains(string(body), "fixversity_http_requests_total") {
		t.Fatalf("/metrics missing request counter:\n%s", body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := setupAPI(t)

	status, _ := f.do(t, http.MethodGet, "/issues/mine", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", status)
	}
	status, _ = f.do(t, http.MethodGet, "/issues/mine", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", status)
	}
}

func TestSignUpRejectsAdminRole(t *testing.T) {
	f := setupAPI(t)

	status, _ := f.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "boss@campus.edu", "password": "correct-horse", "role": "admin",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("signup status = %d, want 400", status)
	}
}

func TestMeReportsRoleFlags(t *testing.T) {
	f := setupAPI(t)
	_, token := f.signUpAndIn(t, "wen@campus.edu", "worker")

	status, body := f.do(t, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("/auth/me status = %d body = %s", status, body)
	}
	me := decodeInto[map[string]any](t, body)
	if me["role"] != "worker" || me["is_worker"] != true || me["is_admin"] != false {
		t.Fatalf("me = %+v", me)
	}
}

func TestCreateIssueStampsCaller(t *testing.T) {
	f := setupAPI(t)
	studentID, token := f.signUpAndIn(t, "sam@campus.edu", "student")

	body := newIssueBody()
	body["user_id"] = "someone-else"
	status, raw := f.do(t, http.MethodPost, "/issues", token, body)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", status, raw)
	}
	created := decodeInto[map[string]any](t, raw)
	if created["user_id"] != studentID {
		t.Fatalf("user_id = %v, want %s", created["user_id"], studentID)
	}
	if created["status"] != "open" || created["priority"] != "medium" {
		t.Fatalf("defaults = %v/%v", created["status"], created["priority"])
	}

	status, raw = f.do(t, http.MethodGet, "/issues/mine", token, nil)
	if status != http.StatusOK {
		t.Fatalf("mine status = %d body = %s", status, raw)
	}
	mine := decodeInto[[]map[string]any](t, raw)
	if len(mine) != 1 {
		t.Fatalf("mine len = %d", len(mine))
	}
	if worker, ok := mine[0]["worker"]; !ok || worker != nil {
		t.Fatalf("worker = %v (present=%v), want explicit null", worker, ok)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	f := setupAPI(t)
	_, token := f.signUpAndIn(t, "sam@campus.edu", "student")

	body := newIssueBody()
	body["category"] = "gardening"
	status, raw := f.do(t, http.MethodPost, "/issues", token, body)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", status, raw)
	}

	body = newIssueBody()
	body["title"] = "   "
	status, raw = f.do(t, http.MethodPost, "/issues", token, body)
	if status != http.StatusBadRequest || !strings.Contains(string(raw), "title is required") {
		t.Fatalf("status = %d body = %s", status, raw)
	}
}

func TestReadsOutsideRoleAreNotApplicable(t *testing.T) {
	f := setupAPI(t)
	_, student := f.signUpAndIn(t, "sam@campus.edu", "student")
	_, worker := f.signUpAndIn(t, "wen@campus.edu", "worker")

	testCases := []struct {
		name  string
		token string
		path  string
	}{
		{name: "student all issues", token: student, path: "/issues"},
		{name: "student workers", token: student, path: "/workers"},
		{name: "student assigned", token: student, path: "/issues/assigned"},
		{name: "worker own issues", token: worker, path: "/issues/mine"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := f.do(t, http.MethodGet, tc.path, tc.token, nil)
			if status != http.StatusForbidden || !strings.Contains(string(raw), "not_applicable") {
				t.Fatalf("status = %d body = %s", status, raw)
			}
		})
	}

	status, raw := f.do(t, http.MethodGet, "/workers/ratings", student, nil)
	if status != http.StatusOK || strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("ratings = %d %s", status, raw)
	}
}

func TestIssueLifecycle(t *testing.T) {
	f := setupAPI(t)
	_, student := f.signUpAndIn(t, "sam@campus.edu", "student")
	workerID, worker := f.signUpAndIn(t, "wen@campus.edu", "worker")
	_, admin := f.signUpAdmin(t, "ada@campus.edu")
	studentAsAssignee, _ := f.signUpAndIn(t, "other@campus.edu", "student")

	_, raw := f.do(t, http.MethodPost, "/issues", student, newIssueBody())
	issueID := decodeInto[map[string]any](t, raw)["id"].(string)
	path := "/issues/" + issueID

	status, raw := f.do(t, http.MethodPatch, path, worker, map[string]any{"status": "in_progress"})
	if status != http.StatusForbidden {
		t.Fatalf("unassigned worker update = %d %s", status, raw)
	}

	status, raw = f.do(t, http.MethodPatch, path, admin, map[string]any{"assigned_to": studentAsAssignee})
	if status != http.StatusBadRequest {
		t.Fatalf("assign to non-worker = %d %s", status, raw)
	}

	status, raw = f.do(t, http.MethodPatch, path, admin, map[string]any{"assigned_to": workerID, "estimated_time": 45})
	if status != http.StatusOK {
		t.Fatalf("admin assign = %d %s", status, raw)
	}

	status, raw = f.do(t, http.MethodPatch, path, worker, map[string]any{"priority": "urgent"})
	if status != http.StatusForbidden {
		t.Fatalf("worker priority change = %d %s", status, raw)
	}

	status, raw = f.do(t, http.MethodPatch, path, worker, map[string]any{"status": "resolved", "admin_notes": "washer replaced"})
	if status != http.StatusOK {
		t.Fatalf("worker resolve = %d %s", status, raw)
	}
	resolved := decodeInto[map[string]any](t, raw)
	if resolved["resolved_at"] == nil || resolved["estimated_time"] != float64(45) {
		t.Fatalf("resolved = %+v", resolved)
	}

	status, raw = f.do(t, http.MethodPost, path+"/rating", student, map[string]any{"rating": 9})
	if status != http.StatusBadRequest {
		t.Fatalf("out of range rating = %d %s", status, raw)
	}
	status, raw = f.do(t, http.MethodPost, path+"/rating", worker, map[string]any{"rating": 5})
	if status != http.StatusForbidden {
		t.Fatalf("worker rating = %d %s", status, raw)
	}
	status, raw = f.do(t, http.MethodPost, path+"/rating", student, map[string]any{"rating": 4})
	if status != http.StatusOK {
		t.Fatalf("rating = %d %s", status, raw)
	}

	status, raw = f.do(t, http.MethodGet, "/workers/ratings", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("ratings = %d %s", status, raw)
	}
	ratings := decodeInto[[]issues.WorkerRating](t, raw)
	if len(ratings) != 1 || ratings[0].WorkerID != workerID || ratings[0].AverageRating != 4 || ratings[0].RatingCount != 1 {
		t.Fatalf("ratings = %+v", ratings)
	}

	status, raw = f.do(t, http.MethodPatch, path, admin, map[string]any{"assigned_to": nil})
	if status != http.StatusOK {
		t.Fatalf("unassign = %d %s", status, raw)
	}
	if unassigned := decodeInto[map[string]any](t, raw); unassigned["assigned_to"] != nil {
		t.Fatalf("assigned_to = %v", unassigned["assigned_to"])
	}

	status, raw = f.do(t, http.MethodGet, "/issues?with=submitters", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("all with submitters = %d %s", status, raw)
	}
	all := decodeInto[[]map[string]any](t, raw)
	submitter, _ := all[0]["submitter"].(map[string]any)
	if len(all) != 1 || submitter["email"] != "sam@campus.edu" {
		t.Fatalf("all = %+v", all)
	}
}

func TestWorkersListSeesNewSignUps(t *testing.T) {
	f := setupAPI(t)
	_, _ = f.signUpAndIn(t, "wen@campus.edu", "worker")
	_, admin := f.signUpAdmin(t, "ada@campus.edu")

	status, raw := f.do(t, http.MethodGet, "/workers", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("workers = %d %s", status, raw)
	}
	if workers := decodeInto[[]identity.Profile](t, raw); len(workers) != 1 {
		t.Fatalf("workers before sign-up = %+v", workers)
	}

	secondID, _ := f.signUpAndIn(t, "wu@campus.edu", "worker")
	status, raw = f.do(t, http.MethodGet, "/workers", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("workers = %d %s", status, raw)
	}
	workers := decodeInto[[]identity.Profile](t, raw)
	if len(workers) != 2 {
		t.Fatalf("workers after sign-up = %+v, want 2", workers)
	}
	found := false
	for _, w := range workers {
		found = found || w.UserID == secondID
	}
	if !found {
		t.Fatalf("new worker %s missing from %+v", secondID, workers)
	}
}

func TestReassignmentMovesWorkerRatings(t *testing.T) {
	f := setupAPI(t)
	_, student := f.signUpAndIn(t, "sam@campus.edu", "student")
	firstID, first := f.signUpAndIn(t, "wen@campus.edu", "worker")
	secondID, _ := f.signUpAndIn(t, "wu@campus.edu", "worker")
	_, admin := f.signUpAdmin(t, "ada@campus.edu")

	_, raw := f.do(t, http.MethodPost, "/issues", student, newIssueBody())
	path := "/issues/" + decodeInto[map[string]any](t, raw)["id"].(string)

	steps := []struct {
		token string
		body  map[string]any
	}{
		{token: admin, body: map[string]any{"assigned_to": firstID}},
		{token: first, body: map[string]any{"status": "resolved"}},
	}
	for _, step := range steps {
		if status, raw := f.do(t, http.MethodPatch, path, step.token, step.body); status != http.StatusOK {
			t.Fatalf("patch %v = %d %s", step.body, status, raw)
		}
	}
	if status, raw := f.do(t, http.MethodPost, path+"/rating", student, map[string]any{"rating": 4}); status != http.StatusOK {
		t.Fatalf("rating = %d %s", status, raw)
	}

	_, raw = f.do(t, http.MethodGet, "/workers/ratings", admin, nil)
	if ratings := decodeInto[[]issues.WorkerRating](t, raw); len(ratings) != 1 || ratings[0].WorkerID != firstID {
		t.Fatalf("ratings before reassignment = %+v", ratings)
	}

	if status, raw := f.do(t, http.MethodPatch, path, admin, map[string]any{"assigned_to": secondID}); status != http.StatusOK {
		t.Fatalf("reassign = %d %s", status, raw)
	}
	_, raw = f.do(t, http.MethodGet, "/workers/ratings", admin, nil)
	ratings := decodeInto[[]issues.WorkerRating](t, raw)
	if len(ratings) != 1 || ratings[0].WorkerID != secondID || ratings[0].AverageRating != 4 {
		t.Fatalf("ratings after reassignment = %+v, want credited to %s", ratings, secondID)
	}
}

func TestHandlerRejectionsNotifyCaller(t *testing.T) {
	f := setupAPI(t)
	studentID, student := f.signUpAndIn(t, "sam@campus.edu", "student")
	workerID, worker := f.signUpAndIn(t, "wen@campus.edu", "worker")

	_, raw := f.do(t, http.MethodPost, "/issues", student, newIssueBody())
	path := "/issues/" + decodeInto[map[string]any](t, raw)["id"].(string)
	_ = f.notes.Drain()

	badCategory := newIssueBody()
	badCategory["category"] = "gardening"
	testCases := []struct {
		name   string
		token  string
		userID string
		method string
		path   string
		body   map[string]any
		status int
	}{
		{name: "unknown category", token: student, userID: studentID, method: http.MethodPost, path: "/issues", body: badCategory, status: http.StatusBadRequest},
		{name: "worker cannot report", token: worker, userID: workerID, method: http.MethodPost, path: "/issues", body: newIssueBody(), status: http.StatusForbidden},
		{name: "unknown status", token: worker, userID: workerID, method: http.MethodPatch, path: path, body: map[string]any{"status": "closed"}, status: http.StatusBadRequest},
		{name: "unassigned worker update", token: worker, userID: workerID, method: http.MethodPatch, path: path, body: map[string]any{"status": "in_progress"}, status: http.StatusForbidden},
		{name: "rating unresolved as worker", token: worker, userID: workerID, method: http.MethodPost, path: path + "/rating", body: map[string]any{"rating": 3}, status: http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := f.do(t, tc.method, tc.path, tc.token, tc.body)
			if status != tc.status {
				t.Fatalf("status = %d body = %s, want %d", status, raw, tc.status)
			}
			notes := f.notes.Drain()
			if len(notes) != 1 || notes[0].Kind != ports.NotificationFailure || notes[0].UserID != tc.userID {
				t.Fatalf("notifications = %+v", notes)
			}
			if !strings.Contains(string(raw), notes[0].Message) {
				t.Fatalf("body %s does not carry notified message %q", raw, notes[0].Message)
			}
		})
	}
}

func TestGetIssueNotFound(t *testing.T) {
	f := setupAPI(t)
	_, token := f.signUpAndIn(t, "sam@campus.edu", "student")

	status, raw := f.do(t, http.MethodGet, "/issues/missing", token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", status, raw)
	}
	status, raw = f.do(t, http.MethodPatch, "/issues/missing", token, map[string]any{"status": "open"})
	if status != http.StatusForbidden {
		t.Fatalf("student patch status = %d body = %s", status, raw)
	}
}

func TestUploadServesStoredFile(t *testing.T) {
	f := setupAPI(t)
	userID, token := f.signUpAndIn(t, "sam@campus.edu", "student")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "tap.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = writer.Close()

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d body = %s", resp.StatusCode, raw)
	}

	url := decodeInto[map[string]string](t, raw)["url"]
	prefix := "http://files.test/files/issue-images/" + userID + "/"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	status, body := f.do(t, http.MethodGet, strings.TrimPrefix(url, "http://files.test"), "", nil)
	if status != http.StatusOK || string(body) != "png-bytes" {
		t.Fatalf("served file = %d %q", status, body)
	}
}

func TestMetaTables(t *testing.T) {
	f := setupAPI(t)

	status, raw := f.do(t, http.MethodGet, "/meta/buildings", "", nil)
	if status != http.StatusOK {
		t.Fatalf("buildings status = %d", status)
	}
	if buildings := decodeInto[[]string](t, raw); len(buildings) == 0 {
		t.Fatal("buildings is empty")
	}

	status, raw = f.do(t, http.MethodGet, "/meta/labels", "", nil)
	if status != http.StatusOK || !strings.Contains(string(raw), "in_progress") {
		t.Fatalf("labels = %d %s", status, raw)
	}
}
