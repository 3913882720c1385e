package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"unibudget/internal/core"
	"unibudget/internal/report"
	"unibudget/internal/services"
	"unibudget/internal/storage"
	"unibudget/internal/storage/memory"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	svc := services.NewRecordService(store, nil)
	builder := report.NewBuilder(store, slog.Default())

	srv := NewServer("127.0.0.1:0", svc, store, builder)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv, store
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	return do(srv, httptest.NewRequest(http.MethodGet, path, nil))
}

func postJSON(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(srv, req)
}

func seedExpense(t *testing.T, store *memory.Store, year, month, day int, category, description, amount string) {
	t.Helper()

	_, err := store.CreateExpense(context.Background(), core.ExpenseRecord{
		Year:        year,
		Month:       month,
		Day:         day,
		Category:    category,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func seedIncome(t *testing.T, store *memory.Store, year, month, day int, source, amount string) {
	t.Helper()

	_, err := store.CreateIncome(context.Background(), core.IncomeRecord{
		Year:   year,
		Month:  month,
		Day:    day,
		Source: source,
		Amount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}
}

func openWorkbook(t *testing.T, rr *httptest.ResponseRecorder) *excelize.File {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExportAttachmentHeaders(t *testing.T) {
	srv, store := newTestServer(t)
	seedExpense(t, store, 2024, 1, 10, "food", "groceries", "12.50")
	seedIncome(t, store, 2024, 1, 1, "stipend", "100.00")

	rr := get(srv, "/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="university_expenses.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Content-Length"); got != strconv.Itoa(rr.Body.Len()) {
		t.Errorf("Content-Length = %q, body has %d bytes", got, rr.Body.Len())
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip container")
	}
}

func TestExportMonthFilter(t *testing.T) {
	srv, store := newTestServer(t)
	seedExpense(t, store, 2024, 1, 10, "food", "groceries", "10.00")
	seedExpense(t, store, 2024, 2, 5, "uber", "campus ride", "5.00")

	rr := get(srv, "/export?month=2024-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	f := openWorkbook(t, rr)
	total, err := f.GetCellValue("Expenses", "G2")
	if err != nil {
		t.Fatalf("read G2: %v", err)
	}
	if total != "10.00" {
		t.Errorf("filtered total = %q, want %q", total, "10.00")
	}
}

func TestExportInvalidMonthExportsEverything(t *testing.T) {
	srv, store := newTestServer(t)
	seedExpense(t, store, 2024, 1, 10, "food", "groceries", "10.00")
	seedExpense(t, store, 2024, 2, 5, "uber", "campus ride", "5.00")

	rr := get(srv, "/export?month=2024-13")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	f := openWorkbook(t, rr)
	total, err := f.GetCellValue("Expenses", "G2")
	if err != nil {
		t.Fatalf("read G2: %v", err)
	}
	if total != "15.00" {
		t.Errorf("total = %q, want %q", total, "15.00")
	}
}

type failingSource struct{ err error }

func (f failingSource) Acquire(context.Context) (storage.ReportConn, error) {
	return nil, f.err
}

type stubConn struct{ expensesErr error }

func (c stubConn) Expenses(context.Context, core.MonthFilter) ([]core.ExpenseRecord, error) {
	return nil, c.expensesErr
}

func (c stubConn) Income(context.Context, core.MonthFilter) ([]core.IncomeRecord, error) {
	return nil, nil
}

func (c stubConn) Release() error { return nil }

type stubSource struct{ conn storage.ReportConn }

func (s stubSource) Acquire(context.Context) (storage.ReportConn, error) {
	return s.conn, nil
}

func TestExportStorageUnreachable(t *testing.T) {
	store := memory.New()
	svc := services.NewRecordService(store, nil)
	builder := report.NewBuilder(failingSource{err: errors.New("dial tcp: connection refused")}, slog.Default())
	srv := NewServer("127.0.0.1:0", svc, store, builder)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := get(srv, "/export")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if got := rr.Body.String(); got != "database connection failed\n" {
		t.Errorf("body = %q, want the short failure message and nothing else", got)
	}
}

func TestExportQueryFailure(t *testing.T) {
	store := memory.New()
	svc := services.NewRecordService(store, nil)
	builder := report.NewBuilder(stubSource{conn: stubConn{expensesErr: errors.New("table vanished")}}, slog.Default())
	srv := NewServer("127.0.0.1:0", svc, store, builder)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := get(srv, "/export")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rr.Body.String(), "failed to generate report") {
		t.Errorf("body = %q, want generation failure message", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "PK") {
		t.Error("failed export must not leak workbook bytes")
	}
}

func TestCreateExpenseRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postJSON(srv, "/api/expenses", `{"year":2024,"month":1,"day":15,"category":"books","description":"textbook","amount":"12.50"}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	for _, want := range []string{`"id":1`, `"date":"2024-01-15"`, `"amount":"12.50"`} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("body %q missing %q", rr.Body.String(), want)
		}
	}

	list := get(srv, "/api/expenses")
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", list.Code, http.StatusOK)
	}
	if !strings.Contains(list.Body.String(), `"category":"books"`) {
		t.Errorf("listing %q missing captured record", list.Body.String())
	}
}

func TestCreateIncomeRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postJSON(srv, "/api/income", `{"year":2024,"month":2,"day":1,"source":"stipend","amount":"250.00"}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"source":"stipend"`) {
		t.Errorf("body %q missing source", rr.Body.String())
	}
}

func TestCreateExpenseBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postJSON(srv, "/api/expenses", "not json")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateExpenseInvalidAmount(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postJSON(srv, "/api/expenses", `{"year":2024,"month":1,"day":15,"category":"food","amount":"12,50 EUR"}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rr.Body.String(), "invalid amount") {
		t.Errorf("body = %q, want invalid amount error", rr.Body.String())
	}
}

func TestCreateExpenseValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postJSON(srv, "/api/expenses", `{"year":2024,"month":13,"day":15,"category":"food","amount":"5.00"}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rr.Body.String(), "invalid record") {
		t.Errorf("body = %q, want validation error", rr.Body.String())
	}
}

func TestListIncomeEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/api/income")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestSummaryCachePurgedOnCapture(t *testing.T) {
	srv, store := newTestServer(t)

	rr := get(srv, "/api/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"total_expenses":"0.00"`) {
		t.Fatalf("initial summary = %q", rr.Body.String())
	}

	// Writing past the service layer leaves the cached summary in place.
	seedExpense(t, store, 2024, 1, 10, "food", "groceries", "3.00")
	rr = get(srv, "/api/summary")
	if !strings.Contains(rr.Body.String(), `"total_expenses":"0.00"`) {
		t.Fatalf("summary after direct write = %q, want cached totals", rr.Body.String())
	}

	// A capture through the API purges the cache.
	post := postJSON(srv, "/api/expenses", `{"year":2024,"month":1,"day":11,"category":"uber","description":"ride","amount":"2.00"}`)
	if post.Code != http.StatusCreated {
		t.Fatalf("capture status = %d: %s", post.Code, post.Body.String())
	}

	rr = get(srv, "/api/summary")
	if !strings.Contains(rr.Body.String(), `"total_expenses":"5.00"`) {
		t.Errorf("summary after capture = %q, want fresh totals", rr.Body.String())
	}
}

func TestSummaryMonthFilter(t *testing.T) {
	srv, store := newTestServer(t)
	seedExpense(t, store, 2024, 1, 10, "food", "groceries", "10.00")
	seedExpense(t, store, 2024, 2, 5, "uber", "campus ride", "4.00")
	seedIncome(t, store, 2024, 1, 1, "stipend", "100.00")

	rr := get(srv, "/api/summary?month=2024-01")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`"month":"2024-01"`,
		`"total_expenses":"10.00"`,
		`"total_income":"100.00"`,
		`"balance":"90.00"`,
		`"food":"10.00"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary %q missing %q", body, want)
		}
	}
	if strings.Contains(body, "2024-02") {
		t.Errorf("filtered summary %q leaks other months", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/healthz")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q", rr.Body.String())
	}
}

type unreachableReader struct{ *memory.Store }

func (unreachableReader) Ping(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestReadyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/readyz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ready"`) {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestReadyEndpointStorageDown(t *testing.T) {
	store := memory.New()
	svc := services.NewRecordService(store, nil)
	builder := report.NewBuilder(store, slog.Default())
	srv := NewServer("127.0.0.1:0", svc, unreachableReader{store}, builder)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := get(srv, "/readyz")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rr.Body.String(), "not_ready") {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestRateLimitAppliesToPostsOnly(t *testing.T) {
	srv, _ := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < rateLimitPerMinute+1; i++ {
		last = postJSON(srv, "/api/expenses", "not json")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after %d posts = %d, want %d", rateLimitPerMinute+1, last.Code, http.StatusTooManyRequests)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}

	if rr := get(srv, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("GET after limit = %d, reads must stay unthrottled", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/healthz")

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestIndexServesExportForm(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `action="/export"`) {
		t.Errorf("index page %q missing export form", rr.Body.String())
	}
}
