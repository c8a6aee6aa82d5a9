package deepface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	config := DefaultConfig()
	config.BaseURL = url
	config.RetryCount = 0
	config.RetryBackoff = 5 * time.Millisecond
	return config
}

func TestClient_Represent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/represent", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req RepresentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Facenet512", req.Model)
		assert.False(t, req.EnforceDetection)
		assert.True(t, req.Align)

		resp := RepresentResponse{
			Results: []RepresentResult{
				{
					Embedding:      []float64{0.1, 0.2, 0.3},
					FacialArea:     FacialArea{X: 10, Y: 20, W: 100, H: 120, LeftEye: []int{40, 60}, RightEye: []int{80, 60}},
					FaceConfidence: 0.98,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	resp, err := client.Represent(context.Background(), "base64data")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, resp.Results[0].Embedding)
	assert.Equal(t, []int{40, 60}, resp.Results[0].FacialArea.LeftEye)
	assert.InDelta(t, 0.98, resp.Results[0].FaceConfidence, 1e-9)
}

func TestClient_RetryOnFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(RepresentResponse{})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 2
	client := NewClient(config)

	_, err := client.Represent(context.Background(), "base64data")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 1
	client := NewClient(config)

	_, err := client.Represent(context.Background(), "base64data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeepFaceUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad image"}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 3
	client := NewClient(config)

	_, err := client.Represent(context.Background(), "base64data")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeepFaceUnavailable))
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Represent(context.Background(), "base64data")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, maxBackoff},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(100*time.Millisecond, tt.attempt))
	}
}
