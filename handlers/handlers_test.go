package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"checkpoint-builder/checkpoint"
	"checkpoint-builder/handlers"
	"checkpoint-builder/logger"
	"checkpoint-builder/models"
	"checkpoint-builder/repository"
	"checkpoint-builder/routers"
)

type mockRepo struct {
	mu      sync.Mutex
	headers map[uint32]*models.Header
	tip     *models.Header
}

func newMockRepo() *mockRepo {
	return &mockRepo{headers: make(map[uint32]*models.Header)}
}

func (m *mockRepo) PutHeader(h *models.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tip != nil {
		if h.Height <= m.tip.Height {
			return fmt.Errorf("%w: %d", repository.ErrHeightExists, h.Height)
		}
		if h.Height != m.tip.Height+1 {
			return fmt.Errorf("%w: %d", repository.ErrHeightGap, h.Height)
		}
	}
	copy := *h
	m.headers[h.Height] = &copy
	m.tip = &copy
	return nil
}

func (m *mockRepo) GetHeader(height uint32) (*models.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[height]
	if !ok {
		return nil, repository.ErrHeaderNotFound
	}
	copy := *h
	return &copy, nil
}

func (m *mockRepo) Tip() (*models.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tip == nil {
		return nil, repository.ErrEmptyStore
	}
	copy := *m.tip
	return &copy, nil
}

func (m *mockRepo) ForEach(fromHeight uint32, fn func(*models.Header) error) error {
	return fmt.Errorf("not implemented")
}

func testManager(t *testing.T) *checkpoint.Manager {
	t.Helper()
	set := checkpoint.NewSet()
	for _, h := range []uint32{100, 200, 300} {
		set.Put(models.Header{Height: h, Hash: common.BytesToHash([]byte{byte(h >> 8), byte(h)}), Time: int64(h) * 10})
	}
	var buf bytes.Buffer
	if _, err := checkpoint.Write(&buf, set); err != nil {
		t.Fatalf("Write: %v", err)
	}
	m, err := checkpoint.Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func testServer(manager *checkpoint.Manager) (*mux.Router, *mockRepo) {
	logger.Logger = zap.NewNop()

	mockRepo := newMockRepo()
	var repoInterface repository.HeaderRepositoryInterface = mockRepo
	handler := handlers.NewHandler(repoInterface, manager)
	router := mux.NewRouter()
	routers.RegisterRoutes(router, handler)
	return router, mockRepo
}

func postHeader(router *mux.Router, height uint32) *httptest.ResponseRecorder {
	body := map[string]interface{}{
		"height": height,
		"hash":   common.BytesToHash([]byte{byte(height)}).Hex(),
		"time":   int64(height) * 60,
	}
	bodyJSON, _ := json.Marshal(body)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/headers", bytes.NewReader(bodyJSON)))
	return res
}

func TestPutHeader_Success(t *testing.T) {
	router, mockRepo := testServer(nil)

	res := postHeader(router, 7)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body: %s", res.Code, res.Body.String())
	}

	got, err := mockRepo.GetHeader(7)
	if err != nil {
		t.Fatalf("expected header stored, got error: %v", err)
	}
	if got.Time != 420 {
		t.Fatalf("expected time 420, got %d", got.Time)
	}
	if got.Hash != common.BytesToHash([]byte{7}) {
		t.Fatalf("hash not decoded: %s", got.Hash.Hex())
	}
}

func TestPutHeader_OutOfOrder(t *testing.T) {
	router, _ := testServer(nil)

	if res := postHeader(router, 7); res.Code != http.StatusCreated {
		t.Fatalf("expected first add 201, got %d", res.Code)
	}
	if res := postHeader(router, 7); res.Code != http.StatusConflict {
		t.Fatalf("expected duplicate 409, got %d, body: %s", res.Code, res.Body.String())
	}
	if res := postHeader(router, 9); res.Code != http.StatusConflict {
		t.Fatalf("expected gap 409, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestPutHeader_BadPayload(t *testing.T) {
	router, _ := testServer(nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/headers", bytes.NewReader([]byte("{"))))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetTip(t *testing.T) {
	router, _ := testServer(nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/headers/tip", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on empty store, got %d", res.Code)
	}

	postHeader(router, 1)
	postHeader(router, 2)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/headers/tip", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var tip models.Header
	if err := json.Unmarshal(res.Body.Bytes(), &tip); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if tip.Height != 2 {
		t.Fatalf("expected tip 2, got %d", tip.Height)
	}
}

func TestGetCheckpoints(t *testing.T) {
	manager := testManager(t)
	router, _ := testServer(manager)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/checkpoints", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if summary["count"] != float64(3) {
		t.Fatalf("expected count 3, got %v", summary["count"])
	}
	if summary["digest"] != manager.Digest().Hex() {
		t.Fatalf("expected digest %s, got %v", manager.Digest().Hex(), summary["digest"])
	}
}

func TestGetCheckpoint(t *testing.T) {
	router, _ := testServer(testManager(t))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/checkpoints/200", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var cp models.Header
	if err := json.Unmarshal(res.Body.Bytes(), &cp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if cp.Height != 200 || cp.Time != 2000 {
		t.Fatalf("unexpected checkpoint %+v", cp)
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/checkpoints/250", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetCheckpointBefore(t *testing.T) {
	router, _ := testServer(testManager(t))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/checkpoints/before/2999", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var cp models.Header
	if err := json.Unmarshal(res.Body.Bytes(), &cp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if cp.Height != 200 {
		t.Fatalf("expected checkpoint 200, got %d", cp.Height)
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/checkpoints/before/999", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected lookup miss 404, got %d", res.Code)
	}
}

func TestCheckpointsUnavailableWithoutFile(t *testing.T) {
	router, _ := testServer(nil)
	for _, path := range []string{"/checkpoints", "/checkpoints/100", "/checkpoints/before/100"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, res.Code)
		}
	}
}
