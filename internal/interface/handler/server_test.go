package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	repo "tripmail-service/internal/interface/repository"
	"tripmail-service/internal/usecase"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"
)

// The same object satisfies scoring, extraction and title enrichment
const (
	bookingResponse = `{"score": 0.95, "reason": "flight_confirmation",
 "destination": "Rome", "dates": "May 01, 2026 - May 08, 2026",
 "flights": [{"airline": "ITA Airways", "flight_number": "611", "departure": "JFK", "arrival": "FCO"}]}`
	promoResponse = `{"score": 0.1, "reason": "newsletter",
 "destination": "Rome", "dates": "May 01, 2026 - May 08, 2026"}`

	webhookToken  = "hook-secret"
	operatorToken = "op-token"
)

type stubAI struct {
	mu       sync.Mutex
	response string
}

func (s *stubAI) GenerateJSON(ctx context.Context, req repository.AIRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response, nil
}

func (s *stubAI) respond(raw string) {
	s.mu.Lock()
	s.response = raw
	s.mu.Unlock()
}

type testServer struct {
	ai     *stubAI
	store  *repo.MemoryStore
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repo.NewMemoryStore()
	store.PutAccount(&entity.Account{ID: "acct-1", Email: "ann@example.com", LinkedEmails: []string{"ann@example.com"}})

	ai := &stubAI{response: bookingResponse}
	log := logger.NewNopLogger()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)

	quarantine := usecase.NewQuarantineService(store.QuarantineRepository(), 0, m, log)
	orchestrator := usecase.NewIngestionOrchestrator(
		usecase.NewSenderResolver(store.Accounts()),
		store.Accounts(),
		usecase.NewValidationGate(ai, usecase.DefaultValidationThreshold, log),
		usecase.NewExtractionEngine(ai, log),
		usecase.NewNormalizer(nil, nil, log),
		usecase.NewTripPersister(store.TripRepository(), usecase.NewTitleEnricher(ai, time.Second, log), m, log),
		quarantine,
		store.UploadLogRepository(),
		usecase.OrchestratorConfig{AICallTimeout: time.Second},
		m,
		log,
	)

	server := NewServer(orchestrator, quarantine, store.UploadLogRepository(), reg, Options{
		WebhookToken:   webhookToken,
		OperatorTokens: map[string]string{operatorToken: "alice"},
	}, log)

	return &testServer{ai: ai, store: store, router: server.Router()}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func webhookRequest(token string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email?token="+token, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeIngest(t *testing.T, rec *httptest.ResponseRecorder) ingestResponse {
	t.Helper()
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestInboundEmailWebhook(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		from        string
		wantStatus  int
		wantSuccess bool
		wantError   string
	}{
		{"booking", webhookToken, "Ann <ann@example.com>", http.StatusOK, true, ""},
		{"unknown sender", webhookToken, "stranger@example.com", http.StatusOK, false, usecase.MessageUnknownSender},
		{"missing from", webhookToken, "", http.StatusBadRequest, false, "from is required"},
		{"bad token", "wrong", "ann@example.com", http.StatusUnauthorized, false, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			form := url.Values{}
			form.Set("from", tt.from)
			form.Set("subject", "Your ITA Airways booking")
			form.Set("text", "AZ 611 JFK to FCO on May 01, 2026")

			rec := ts.do(webhookRequest(tt.token, form))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeIngest(t, rec)
			if resp.Success != tt.wantSuccess || resp.Error != tt.wantError {
				t.Errorf("response = %+v", resp)
			}
			if tt.wantSuccess && (resp.TripID != "rome-2026" || !resp.Created) {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestWebhookQuarantineAndForceReplay(t *testing.T) {
	ts := newTestServer(t)
	ts.ai.respond(promoResponse)

	form := url.Values{}
	form.Set("from", "ann@example.com")
	form.Set("subject", "Summer sale")
	form.Set("html", "<p>Fly to Rome from $399</p>")
	resp := decodeIngest(t, ts.do(webhookRequest(webhookToken, form)))
	if resp.Success || resp.QuarantineID == "" || resp.State != string(usecase.StateRejectedValidation) {
		t.Fatalf("response = %+v", resp)
	}

	adminRequest := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+operatorToken)
		return req
	}

	if rec := ts.do(httptest.NewRequest(http.MethodGet, "/admin/quarantine", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated list status = %d", rec.Code)
	}

	rec := ts.do(adminRequest(http.MethodGet, "/admin/quarantine?status=pending"))
	var list struct {
		Entries []entity.QuarantineEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Entries) != 1 {
		t.Fatalf("list = %s (%v)", rec.Body.String(), err)
	}

	rec = ts.do(adminRequest(http.MethodGet, "/admin/quarantine/export.csv"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), resp.QuarantineID) {
		t.Errorf("export = %d %q", rec.Code, rec.Body.String())
	}

	rec = ts.do(adminRequest(http.MethodPost, "/admin/quarantine/"+resp.QuarantineID+"/force"))
	if rec.Code != http.StatusOK {
		t.Fatalf("force status = %d: %s", rec.Code, rec.Body.String())
	}
	if forced := decodeIngest(t, rec); !forced.Success || forced.TripID != "rome-2026" {
		t.Errorf("force response = %+v", forced)
	}

	if rec := ts.do(adminRequest(http.MethodPost, "/admin/quarantine/"+resp.QuarantineID+"/force")); rec.Code != http.StatusConflict {
		t.Errorf("second force status = %d, want 409", rec.Code)
	}
	if rec := ts.do(adminRequest(http.MethodGet, "/admin/quarantine/missing")); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", rec.Code)
	}

	rec = ts.do(adminRequest(http.MethodGet, "/admin/upload-logs?accountId=acct-1"))
	var logs struct {
		Logs []entity.UploadLog `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil || len(logs.Logs) != 2 {
		t.Errorf("upload logs = %s (%v)", rec.Body.String(), err)
	}
}

func uploadRequest(t *testing.T, accountID, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if accountID != "" {
		req.Header.Set(AccountHeader, accountID)
	}
	return req
}

func TestUpload(t *testing.T) {
	pdf := []byte("%PDF-1.4\n% itinerary")

	tests := []struct {
		name       string
		accountID  string
		filename   string
		data       []byte
		wantStatus int
	}{
		{"pdf", "acct-1", "itinerary.pdf", pdf, http.StatusOK},
		{"no account", "", "itinerary.pdf", pdf, http.StatusUnauthorized},
		{"text file", "acct-1", "notes.txt", []byte("plain notes"), http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(uploadRequest(t, tt.accountID, tt.filename, tt.data))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				resp := decodeIngest(t, rec)
				if !resp.Success || resp.State != string(usecase.StateDone) {
					t.Errorf("response = %+v", resp)
				}
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	form := url.Values{}
	form.Set("from", "ann@example.com")
	form.Set("text", "AZ 611")
	ts.do(webhookRequest(webhookToken, form))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "test_") {
		t.Errorf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}
