package outlook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "graph-token"})
	c, err := NewClient(ts, WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresTokenSource(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
}

func TestConvertToRestID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/translateExchangeIds", r.URL.Path)
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))

		var body struct {
			InputIDs     []string `json:"inputIds"`
			SourceIDType string   `json:"sourceIdType"`
			TargetIDType string   `json:"targetIdType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"entry-id-1"}, body.InputIDs)
		assert.Equal(t, "entryId", body.SourceIDType)
		assert.Equal(t, "restId", body.TargetIDType)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []idTranslation{
				{SourceID: "entry-id-1", TargetID: "AAMkREST"},
			},
		})
	}))

	got, err := c.ConvertToRestID(context.Background(), "entry-id-1")
	require.NoError(t, err)
	assert.Equal(t, "AAMkREST", got)
}

func TestConvertToRestIDEmptyTranslation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": []idTranslation{}})
	}))

	_, err := c.ConvertToRestID(context.Background(), "entry-id-1")
	assert.Error(t, err)
}

func TestLookupMessageID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages/AAMkREST", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Message{
			ID:                "AAMkREST",
			InternetMessageID: "<abc@mail.example.com>",
		})
	}))

	got, err := c.LookupMessageID(context.Background(), "AAMkREST")
	require.NoError(t, err)
	assert.Equal(t, "<abc@mail.example.com>", got)
}

func TestGraphErrorSurfacesCode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"ErrorItemNotFound","message":"The specified object was not found."}}`))
	}))

	_, err := c.Message(context.Background(), "missing")
	require.Error(t, err)

	var graphErr *GraphError
	require.True(t, errors.As(err, &graphErr))
	assert.Equal(t, http.StatusNotFound, graphErr.Status)
	assert.Contains(t, graphErr.Error(), "ErrorItemNotFound")
}
