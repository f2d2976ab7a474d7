package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"affiliate-sales-api/internal/database"
	"affiliate-sales-api/internal/models"
	"affiliate-sales-api/internal/service"

	"github.com/go-chi/chi/v5"
)

func setupTestHandler(t *testing.T) (*Handler, func()) {
	dbPath := "./test_handler_" + time.Now().Format("20060102150405.000000000") + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	svc := service.NewService(db)
	h := NewHandler(svc)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return h, cleanup
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/transaction", h.GetTransactions)
	r.Post("/transaction/upload", h.UploadTransactionFile)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

// uploadRequest builds a multipart POST with content under the "file" field.
func uploadRequest(t *testing.T, content string) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "sales.txt")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/transaction/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func fixedLine(code int, date, product string, value int64, seller string) string {
	return fmt.Sprintf("%d%s%-30s%010d%s", code, date, product, value, seller)
}

func TestHealthCheck(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestUploadTransactionFile_Success(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	content := strings.Join([]string{
		fixedLine(1, "2022-01-15T19:20:30-03:00", "CURSO DE BEM-ESTAR", 12750, "JOSE CARLOS"),
		fixedLine(4, "2022-01-16T14:13:54-03:00", "CURSO DE BEM-ESTAR", 4500, "JOSE CARLOS"),
	}, "\n")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, content))

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	if rr.Body.Len() != 0 {
		t.Errorf("Expected empty body on success, got %q", rr.Body.String())
	}
}

func TestUploadTransactionFile_EmptyFile(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, ""))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}

func TestUploadTransactionFile_MissingFileField(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("POST", "/transaction/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}

func TestUploadTransactionFile_MalformedLine(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "too short to be a transaction"))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	if !strings.Contains(response.Error, "invalid transaction format") {
		t.Errorf("Expected line-identifying message, got %q", response.Error)
	}
}

func TestUploadTransactionFile_UnknownType(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	content := fixedLine(7, "2022-01-15T19:20:30-03:00", "CURSO DE BEM-ESTAR", 12750, "JOSE CARLOS")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, content))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	if !strings.Contains(response.Error, "7") {
		t.Errorf("Expected code-identifying message, got %q", response.Error)
	}
}

func TestUploadTransactionFile_BadLinePersistsNothing(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	content := strings.Join([]string{
		fixedLine(1, "2022-01-15T19:20:30-03:00", "CURSO DE BEM-ESTAR", 12750, "JOSE CARLOS"),
		"broken",
	}, "\n")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, content))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/transaction", nil))

	var summaries []models.SellerSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to unmarshal summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("Expected no seller groups after rejected upload, got %d", len(summaries))
	}
}

func TestGetTransactions_GroupedBySeller(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	content := strings.Join([]string{
		fixedLine(1, "2022-01-15T19:20:30-03:00", "CURSO DE BEM-ESTAR", 12750, "JOSE CARLOS"),
		fixedLine(3, "2022-01-16T14:13:54-03:00", "CURSO DE BEM-ESTAR", 2750, "JOSE CARLOS"),
		fixedLine(2, "2022-01-17T10:00:00-03:00", "DESENVOLVEDOR FULL STACK", 15000, "MARIA CANDIDA"),
	}, "\n")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, content))
	if rr.Code != http.StatusCreated {
		t.Fatalf("Failed to upload file: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/transaction", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var summaries []models.SellerSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to unmarshal summaries: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("Expected 2 seller groups, got %d", len(summaries))
	}
	if summaries[0].Name != "JOSE CARLOS" || summaries[0].Earnings != 10000 {
		t.Errorf("Expected JOSE CARLOS with earnings 10000, got %s with %d", summaries[0].Name, summaries[0].Earnings)
	}
	if len(summaries[0].Transactions) != 2 {
		t.Errorf("Expected 2 transactions for first group, got %d", len(summaries[0].Transactions))
	}
	if summaries[0].Transactions[0].Product.Name != "CURSO DE BEM-ESTAR" {
		t.Errorf("Expected resolved product name, got %q", summaries[0].Transactions[0].Product.Name)
	}
	if summaries[1].Name != "MARIA CANDIDA" || summaries[1].Earnings != 15000 {
		t.Errorf("Expected MARIA CANDIDA with earnings 15000, got %s with %d", summaries[1].Name, summaries[1].Earnings)
	}
}

func TestGetTransactions_EmptyDatabase(t *testing.T) {
	h, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/transaction", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != "[]" {
		t.Errorf("Expected empty JSON array, got %q", body)
	}
}
