package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kylejryan/field-report-bot/internal/schema"
	"github.com/kylejryan/field-report-bot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func get(t *testing.T, srv *Server, path string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func TestHealth(t *testing.T) {
	store := session.NewStore()
	store.Begin("1")
	store.Begin("2")
	srv := NewServer(":0", store, CounterFunc(func() int { return 1 }), schema.Default(), zap.NewNop())

	for _, path := range []string{"/health", "/api/v1/health"} {
		code, raw := get(t, srv, path)
		require.Equal(t, http.StatusOK, code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "ok", body["status"])
		assert.EqualValues(t, 2, body["active_sessions"])
		assert.EqualValues(t, 1, body["busy_sessions"])
	}
}

func TestFields(t *testing.T) {
	srv := NewServer(":0", nil, nil, schema.Default(), zap.NewNop())
	code, raw := get(t, srv, "/api/v1/fields")
	require.Equal(t, http.StatusOK, code)

	var fields []fieldView
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Len(t, fields, 7)
	assert.Equal(t, schema.KeyOperator, fields[0].Key)
	assert.Len(t, fields[3].Choices, 4)
	assert.Equal(t, "attachment", fields[6].Kind)
}

func TestFields_NoSchema(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil, zap.NewNop())
	code, _ := get(t, srv, "/api/v1/fields")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRun_ShutsDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := NewServer(addr, nil, nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}
