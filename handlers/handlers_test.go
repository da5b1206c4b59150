package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"provas-server-go/auth"
	"provas-server-go/db"
	"provas-server-go/middlewares"
	"provas-server-go/models"
	"provas-server-go/render"
	"provas-server-go/templates"
)

type fakeExporter struct {
	err   error
	calls int
}

func (f *fakeExporter) PDF(a *models.Assessment) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + a.Title), nil
}

type testServer struct {
	router   *gin.Engine
	store    *db.DocumentStore
	exporter *fakeExporter
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv, err := db.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := db.NewDocumentStore(kv)
	verifier, err := auth.NewVerifier("admin", "admin", "", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := templates.Load()
	if err != nil {
		t.Fatal(err)
	}

	exporter := &fakeExporter{}
	router := gin.New()
	router.SetHTMLTemplate(pages)
	RegisterRoutes(router, NewHandler(store, exporter, verifier, sessions, NewFlashStore([]byte("flash-test-key"), false)))
	return &testServer{router: router, store: store, exporter: exporter}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (s *testServer) postJSON(path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, cookies...)
}

func (s *testServer) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *testServer) session(t *testing.T) *http.Cookie {
	t.Helper()
	w := s.login(t, "admin", "admin")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("login failed: %d %s", w.Code, w.Header().Get("Location"))
	}
	c := cookieNamed(w, middlewares.SessionCookie)
	if c == nil || c.Value == "" {
		t.Fatal("login did not set a session cookie")
	}
	return c
}

var alertPattern = regexp.MustCompile(`(?s)<div class="alert alert-(\w+)" role="alert">(.*?)</div>`)

// flashOf follows a redirect to the dashboard and returns the flash it shows
func (s *testServer) flashOf(t *testing.T, w *httptest.ResponseRecorder, session *http.Cookie) *Flash {
	t.Helper()
	c := cookieNamed(w, flashSession)
	if c == nil {
		return nil
	}
	page := s.get("/dashboard", session, c)
	m := alertPattern.FindStringSubmatch(page.Body.String())
	if m == nil {
		return nil
	}
	return &Flash{Category: m[1], Message: html.UnescapeString(m[2])}
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	s := setupServer(t)
	paths := []string{"/dashboard", "/dashboard/export", "/create", "/edit/abc", "/delete/abc", "/generate_pdf/abc"}
	for _, p := range paths {
		w := s.get(p)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Errorf("GET %s: expected redirect to /login, got %d %q", p, w.Code, w.Header().Get("Location"))
		}
	}

	w := s.postJSON("/edit/abc", models.NewAssessment())
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("POST /edit: expected redirect to /login, got %d", w.Code)
	}

	w = s.get("/dashboard", &http.Cookie{Name: middlewares.SessionCookie, Value: "forged"})
	if w.Code != http.StatusFound {
		t.Errorf("forged session accepted: %d", w.Code)
	}
	if s.exporter.calls != 0 {
		t.Error("exporter must not run for anonymous requests")
	}
}

func TestIndexRedirects(t *testing.T) {
	s := setupServer(t)
	if w := s.get("/"); w.Header().Get("Location") != "/login" {
		t.Errorf("anonymous index should go to /login, got %q", w.Header().Get("Location"))
	}
	if w := s.get("/", s.session(t)); w.Header().Get("Location") != "/dashboard" {
		t.Errorf("authenticated index should go to /dashboard, got %q", w.Header().Get("Location"))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := setupServer(t)
	w := s.login(t, "admin", "nope")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if c := cookieNamed(w, middlewares.SessionCookie); c != nil && c.Value != "" {
		t.Error("failed login must not set a session")
	}
	if !strings.Contains(w.Body.String(), "Credenciais inválidas") {
		t.Error("expected the invalid credentials message on the login page")
	}
	if !strings.Contains(w.Body.String(), `value="admin"`) {
		t.Error("expected the submitted username to be kept")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s := setupServer(t)
	w := s.get("/logout", s.session(t))
	if w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %q", w.Header().Get("Location"))
	}
	c := cookieNamed(w, middlewares.SessionCookie)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("expected session cookie to be expired, got %+v", c)
	}
}

func TestAuthoringScenario(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	w := s.get("/create", session)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Nova avaliação") {
		t.Fatalf("create page: %d", w.Code)
	}
	if list, _ := s.store.List(context.Background()); len(list) != 0 {
		t.Fatal("opening the editor must not store anything")
	}

	a := models.NewAssessment()
	a.Title = "Prova 1"
	a.ClassName = "3A"
	a.Questions = []models.Question{{ID: 1, Type: models.QuestionTrueFalse, Text: "O céu é azul."}}
	w = s.postJSON("/edit/"+a.ID, a, session)
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	var res map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["status"] != "success" || res["id"] != a.ID {
		t.Fatalf("unexpected save response %v", res)
	}

	w = s.get("/dashboard", session)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Prova 1") {
		t.Fatalf("dashboard does not list the saved assessment: %d", w.Code)
	}

	w = s.get("/edit/"+a.ID, session)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "O céu é azul.") {
		t.Fatalf("edit page does not show the saved question: %d", w.Code)
	}

	w = s.get("/generate_pdf/"+a.ID, session)
	if w.Code != http.StatusOK {
		t.Fatalf("generate_pdf: %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("expected a pdf body, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "prova_") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	w = s.get("/delete/"+a.ID, session)
	if w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("delete should redirect to dashboard, got %q", w.Header().Get("Location"))
	}
	if f := s.flashOf(t, w, session); f == nil || f.Category != "success" {
		t.Errorf("expected a success flash, got %+v", f)
	}
	if _, err := s.store.Load(context.Background(), a.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected record to be gone, got %v", err)
	}

	// deleting again is not an error
	w = s.get("/delete/"+a.ID, session)
	if f := s.flashOf(t, w, session); w.Code != http.StatusFound || f == nil || f.Category != "success" {
		t.Errorf("second delete: %d %+v", w.Code, f)
	}
}

func TestSaveValidation(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	a := models.NewAssessment()
	w := s.postJSON("/edit/some-other-id", a, session)
	if w.Code != http.StatusBadRequest {
		t.Errorf("id mismatch: expected 400, got %d", w.Code)
	}

	a.Questions = []models.Question{{ID: 1, Type: models.QuestionMultipleChoice, Text: "?", Options: []string{"só uma"}}}
	w = s.postJSON("/edit/"+a.ID, a, session)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"status":"error"`) {
		t.Errorf("invalid question: expected 400 error, got %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/edit/x", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req, session); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", w.Code)
	}

	// an omitted body id takes the id from the URL
	w = s.postJSON("/edit/from-url", map[string]any{"title": "Sem id", "questions": []any{}}, session)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if got, err := s.store.Load(context.Background(), "from-url"); err != nil || got.Title != "Sem id" {
		t.Errorf("expected document stored under the URL id, got %+v (%v)", got, err)
	}

	if list, _ := s.store.List(context.Background()); len(list) != 1 {
		t.Errorf("rejected documents must not be stored, got %d records", len(list))
	}
}

func TestEditMissingRedirectsWithFlash(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)
	for _, p := range []string{"/edit/missing", "/generate_pdf/missing"} {
		w := s.get(p, session)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
			t.Errorf("GET %s: expected redirect to dashboard, got %d", p, w.Code)
		}
		if f := s.flashOf(t, w, session); f == nil || f.Category != "danger" {
			t.Errorf("GET %s: expected an error flash, got %+v", p, f)
		}
	}
	if s.exporter.calls != 0 {
		t.Error("exporter must not run for a missing assessment")
	}
}

func TestGeneratePDFReportsMissingDependency(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	a := models.NewAssessment()
	if _, err := s.store.Save(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	s.exporter.err = fmt.Errorf("%w: wkhtmltopdf not found", render.ErrDependencyMissing)
	w := s.get("/generate_pdf/"+a.ID, session)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	f := s.flashOf(t, w, session)
	if f == nil || !strings.Contains(f.Message, "wkhtmltopdf") {
		t.Errorf("expected the flash to name the missing engine, got %+v", f)
	}

	s.exporter.err = errors.New("boom")
	w = s.get("/generate_pdf/"+a.ID, session)
	if f := s.flashOf(t, w, session); f == nil || !strings.Contains(f.Message, "Erro inesperado") {
		t.Errorf("expected a generic failure flash, got %+v", f)
	}
}

func TestFlashShownOnceOnDashboard(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	w := s.get("/delete/whatever", session)
	flash := cookieNamed(w, flashSession)
	if flash == nil {
		t.Fatal("expected a flash cookie")
	}
	w = s.get("/dashboard", session, flash)
	if !strings.Contains(w.Body.String(), "Avaliação excluída") {
		t.Error("flash message not rendered on the dashboard")
	}

	consumed := cookieNamed(w, flashSession)
	if consumed == nil {
		t.Fatal("expected the flash cookie to be rewritten once shown")
	}
	w = s.get("/dashboard", session, consumed)
	if strings.Contains(w.Body.String(), "Avaliação excluída") {
		t.Error("flash message shown twice")
	}
}

func TestLongExportErrorStillReachesTheUser(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	a := models.NewAssessment()
	if _, err := s.store.Save(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	stderr := strings.Repeat("Loading pages (1/6)\n[======>                  ] 10%\r", 80)
	s.exporter.err = fmt.Errorf("%w: %s", render.ErrDependencyMissing, stderr)

	w := s.get("/generate_pdf/"+a.ID, session)
	for _, h := range w.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(h, flashSession+"=") && len(h) >= 4096 {
			t.Errorf("flash cookie is %d bytes, browsers drop cookies over 4096", len(h))
		}
	}
	f := s.flashOf(t, w, session)
	if f == nil {
		t.Fatal("flash message lost")
	}
	if f.Category != "danger" || !strings.Contains(f.Message, "wkhtmltopdf não foi encontrado") {
		t.Errorf("unexpected flash %+v", f)
	}
	if len(f.Message) > 600 {
		t.Errorf("engine output should be shortened, got %d bytes", len(f.Message))
	}
}

func TestImportQuestions(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	a := models.NewAssessment()
	if _, err := s.store.Save(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	f := excelize.NewFile()
	rows := [][]any{
		{"tipo", "enunciado", "imagem", "A", "B"},
		{"multiple_choice", "2+2?", "", "4", "5"},
		{"discursive", "Comente.", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var xlsx bytes.Buffer
	if _, err := f.WriteTo(&xlsx); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "questoes.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(xlsx.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import/questions/"+a.ID, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := s.do(req, session)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"imported":2`) {
		t.Errorf("unexpected import response %s", w.Body.String())
	}

	got, err := s.store.Load(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Questions) != 2 || got.Questions[0].Type != models.QuestionMultipleChoice {
		t.Errorf("questions not appended: %+v", got.Questions)
	}

	req = httptest.NewRequest(http.MethodPost, "/import/questions/missing", nil)
	if w := s.do(req, session); w.Code != http.StatusNotFound {
		t.Errorf("missing assessment: expected 404, got %d", w.Code)
	}
}

func TestExportDashboard(t *testing.T) {
	s := setupServer(t)
	session := s.session(t)

	for _, title := range []string{"Beta", "alfa"} {
		a := models.NewAssessment()
		a.Title = title
		if _, err := s.store.Save(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}

	w := s.get("/dashboard/export", session)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][1] != "alfa" || rows[2][1] != "Beta" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestPing(t *testing.T) {
	s := setupServer(t)
	w := s.get("/ping")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("unexpected ping response %d %s", w.Code, w.Body.String())
	}
}
