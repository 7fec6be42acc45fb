package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/metrics"
	"pumpwatch/internal/model"
	"pumpwatch/internal/notification"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeReader struct {
	pairs   []model.PairSnapshot
	snaps   []model.IndicatorSnapshot
	err     error
	lookups []string
}

func (f *fakeReader) PairRoster(ctx context.Context) ([]model.PairSnapshot, error) {
	return f.pairs, f.err
}

func (f *fakeReader) Indicators(ctx context.Context) ([]model.IndicatorSnapshot, error) {
	return f.snaps, f.err
}

func (f *fakeReader) Indicator(ctx context.Context, token string) (*model.IndicatorSnapshot, error) {
	f.lookups = append(f.lookups, token)
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.snaps {
		if f.snaps[i].TokenAddress == token {
			return &f.snaps[i], nil
		}
	}
	return nil, nil
}

type fakeSink struct {
	full   bool
	alerts []model.AlertEvent
}

func (f *fakeSink) Enqueue(a model.AlertEvent) bool {
	if f.full {
		return false
	}
	f.alerts = append(f.alerts, a)
	return true
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func do(t *testing.T, h *Handler, method, path string, body []byte) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestListIndicators(t *testing.T) {
	rsi := 25.5
	h := NewHandler(&fakeReader{snaps: []model.IndicatorSnapshot{
		{TokenAddress: "TOKA", Symbol: "AAA", RSIShort: &rsi},
	}}, nil, nil)

	code, resp := do(t, h, http.MethodGet, "/api/rsi", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Error)

	var snaps []model.IndicatorSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "TOKA", snaps[0].TokenAddress)
	assert.Nil(t, snaps[0].RSILong)
}

func TestGetIndicator(t *testing.T) {
	reader := &fakeReader{snaps: []model.IndicatorSnapshot{{TokenAddress: "TOKA"}}}
	h := NewHandler(reader, nil, nil)

	code, resp := do(t, h, http.MethodGet, "/api/rsi/TOKA", nil)
	require.Equal(t, http.StatusOK, code)
	var snap model.IndicatorSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snap))
	assert.Equal(t, "TOKA", snap.TokenAddress)

	code, resp = do(t, h, http.MethodGet, "/api/rsi/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, resp.Error, "NOPE")

	// Single-token lookups, never a full scan.
	assert.Equal(t, []string{"TOKA", "NOPE"}, reader.lookups)
}

func TestGetIndicator_StoreError(t *testing.T) {
	h := NewHandler(&fakeReader{err: &model.StoreUnavailableError{Op: "find", Err: errors.New("refused")}}, nil, nil)
	code, resp := do(t, h, http.MethodGet, "/api/rsi/TOKA", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Error, "store unavailable")
}

func TestListPairs_StoreErrors(t *testing.T) {
	h := NewHandler(&fakeReader{err: &model.StoreUnavailableError{Op: "find", Err: errors.New("refused")}}, nil, nil)
	code, resp := do(t, h, http.MethodGet, "/api/pairs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Error, "store unavailable")

	h = NewHandler(&fakeReader{err: errors.New("decode failed")}, nil, nil)
	code, _ = do(t, h, http.MethodGet, "/api/pairs", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestMissingStoreIsDescriptive(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	code, resp := do(t, h, http.MethodGet, "/api/pairs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, storeMissing, resp.Error)
}

func TestTestAlert(t *testing.T) {
	sink := &fakeSink{}
	h := NewHandler(&fakeReader{}, sink, nil)

	code, resp := do(t, h, http.MethodPost, "/api/alerts/test",
		[]byte(`{"symbol":"AAA","tokenContractAddress":"TOKA","rsi5m":20,"rsi1h":15,"marketCap":1500}`))
	require.Equal(t, http.StatusAccepted, code)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "$1.50K", sink.alerts[0].MarketCap)
	assert.Equal(t, "20.00", sink.alerts[0].RSIShort)
	assert.Empty(t, resp.Error)

	code, resp = do(t, h, http.MethodPost, "/api/alerts/test", []byte(`{"rsi5m":20}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, resp.Error)

	sink.full = true
	code, _ = do(t, h, http.MethodPost, "/api/alerts/test", []byte(`{"symbol":"AAA"}`))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHealth(t *testing.T) {
	health := metrics.NewHealthStatus()
	h := NewHandler(&fakeReader{}, nil, health)

	code, _ := do(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code, "store never checked")

	health.CheckStore(context.Background(), &fakeReaderPinger{})
	code, resp := do(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)

	var report metrics.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.True(t, report.StoreOK)
}

type fakeReaderPinger struct{}

func (fakeReaderPinger) Ping(ctx context.Context) error { return nil }

func TestRecentAlerts(t *testing.T) {
	history := notification.NewHistoryNotifier(8)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		require.NoError(t, history.Send(context.Background(), model.AlertEvent{Symbol: sym}))
	}
	h := NewHandler(&fakeReader{}, nil, nil).WithHistory(history)

	code, resp := do(t, h, http.MethodGet, "/api/alerts?limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	var records []notification.AlertRecord
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "CCC", records[0].Symbol)

	code, _ = do(t, h, http.MethodGet, "/api/alerts?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
