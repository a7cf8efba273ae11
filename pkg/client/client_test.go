package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    status < 400,
		"data":       data,
		"request_id": "req-1",
	})
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.baseURL)
}

func TestRecordCorrection(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/corrections", r.URL.Path)

		var req RecordCorrectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "assignee", req.Field)

		writeEnvelope(w, http.StatusCreated, Correction{
			ID:             "0b06df98-1db9-4b72-a65d-5a6ee88f1cd1",
			DocumentID:     req.DocumentID,
			Field:          req.Field,
			CorrectedValue: req.CorrectedValue,
			CreatedAt:      time.Now().UTC(),
		})
	}))

	rec, err := c.RecordCorrection(context.Background(), RecordCorrectionRequest{
		DocumentID:     "doc-1",
		Field:          "assignee",
		CorrectedValue: "ACME Inc.",
	})
	require.NoError(t, err)
	assert.Equal(t, "assignee", rec.Field)
	assert.NotEmpty(t, rec.ID)
}

func TestAPIKeyHeader(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, []FieldOpportunity{})
	}), WithAPIKey("secret-token"))

	_, err := c.Opportunities(context.Background())
	require.NoError(t, err)
}

func TestAPIErrorMapping(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error": map[string]string{
				"code":    "SYN_001",
				"message": "not enough corrections to synthesize",
				"detail":  "field assignee has 3 eligible corrections",
			},
			"request_id": "req-9",
		})
	}))

	_, err := c.Synthesize(context.Background(), "assignee")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "SYN_001", apiErr.Code)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.True(t, apiErr.IsConflict())
}

func TestGetRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeEnvelope(w, http.StatusServiceUnavailable, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, []FieldOpportunity{
			{Field: "assignee", CorrectionCount: 7, Ready: true},
		})
	}))

	opportunities, err := c.Opportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPostDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, nil)
	}))

	_, err := c.Deploy(context.Background(), DeployRequest{Field: "assignee", Pattern: `x(y)`})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestExtract_NullMatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"match": nil})
	}))

	match, err := c.Extract(context.Background(), "assignee", "nothing relevant")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFieldPathEscapesParam(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fields/filingDate/patterns", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []DeployedPattern{})
	}))

	_, err := c.History(context.Background(), "filingDate")
	require.NoError(t, err)
}
