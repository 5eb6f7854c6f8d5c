package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func testReport() models.Report {
	return models.Report{
		Date:             "15/10/2026",
		Time:             "09:30",
		OperatorName:     "Mario Rossi",
		CustomerName:     "Acme Srl",
		Address:          "Via Roma 1",
		InterventionType: "🦟 Zanzare",
		Products:         "Icaro 10",
		Notes:            "=nessuna",
		AttachmentRef:    "https://drive.example/f/1",
		Status:           models.StatusCompleted,
		CreatedAt:        time.Now(),
	}
}

func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), "sheet-123", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s
}

func TestAppendRow(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotQuery  map[string]string
		gotBody   struct {
			MajorDimension string     `json:"majorDimension"`
			Values         [][]string `json:"values"`
		}
	)
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123","updates":{"updatedRows":1}}`))
	})

	require.NoError(t, s.AppendRow(context.Background(), testReport()))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.True(t, strings.Contains(gotPath, "/spreadsheets/sheet-123/values/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, ":append"), gotPath)
	assert.Equal(t, "RAW", gotQuery["valueInputOption"])
	assert.Equal(t, "INSERT_ROWS", gotQuery["insertDataOption"])
	assert.Equal(t, "ROWS", gotBody.MajorDimension)
	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, testReport().Row(), gotBody.Values[0])
}

func TestAppendRow_APIError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
	})

	err := s.AppendRow(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet-123")
	assert.Contains(t, err.Error(), "permission")
}

func TestNew_RequiresSpreadsheet(t *testing.T) {
	_, err := New(context.Background(), "", "", option.WithoutAuthentication())
	assert.Error(t, err)
}
