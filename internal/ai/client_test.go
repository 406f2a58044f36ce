package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "anon-key", opts...)
	require.NoError(t, err)
	return c
}

func TestSummarize(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/summarize-email", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var in EmailInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Q3 invoice", in.Subject)

		_ = json.NewEncoder(w).Encode(Summary{
			Points:  []string{"Invoice attached", "Due Friday"},
			Urgency: 4,
		})
	}))

	got, err := c.Summarize(context.Background(), EmailInput{
		Subject: "Q3 invoice",
		Body:    "Please find attached...",
		Sender:  "billing@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice attached", "Due Friday"}, got.Points)
	assert.Equal(t, 4, got.Urgency)
}

func TestSummarizeClampsUrgency(t *testing.T) {
	tests := []struct {
		name     string
		returned int
		want     int
	}{
		{name: "below range", returned: 0, want: 1},
		{name: "above range", returned: 9, want: 5},
		{name: "in range", returned: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Summary{Urgency: tt.returned})
			}))

			got, err := c.Summarize(context.Background(), EmailInput{Subject: "x"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Urgency)
		})
	}
}

func TestDraftReplyDefaultsTone(t *testing.T) {
	var gotTone string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req DraftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTone = req.Tone
		_ = json.NewEncoder(w).Encode(Draft{Subject: "Re: hello", Body: "Thanks!"})
	}))

	draft, err := c.DraftReply(context.Background(), DraftRequest{
		Email: EmailInput{Subject: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "professional", gotTone)
	assert.Equal(t, "Re: hello", draft.Subject)
}

func TestTokenSourcePreferredOverAnonKey(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(Summary{Urgency: 1})
	}), WithTokenSource(func() string { return "user-jwt" }))

	_, err := c.Summarize(context.Background(), EmailInput{Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-jwt", gotAuth)
}

func TestCallFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("model unavailable"))
	}))

	_, err := c.Summarize(context.Background(), EmailInput{Subject: "x"})
	require.Error(t, err)

	var analysisErr *AnalysisError
	require.True(t, errors.As(err, &analysisErr))
	assert.Equal(t, http.StatusBadGateway, analysisErr.Status)
	assert.Contains(t, analysisErr.Error(), "model unavailable")
}
