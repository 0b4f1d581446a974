package cross

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

func TestClient_Generate(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{},{"father":["m","Aa","Bb","Cc"],"mother":["f","AA","BB","CC"],"sum":"1/8","childs":[{"gene":["m","AA","BB","CC"],"prob":"1/128"}]},null]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	resp, err := c.Generate(context.Background(), Request{
		Parents: [][]string{{"m", "Aa", "Bb", "Cc"}, {"f", "AA", "BB", "CC"}},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"m", "Aa", "Bb", "Cc"}, {"f", "AA", "BB", "CC"}}, got.Parents)
	assert.NotNil(t, got.Targets, "targets are sent as [] rather than null")

	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Empty())
	assert.False(t, resp.Results[1].Empty())
	assert.True(t, resp.Results[2].Empty())
	assert.Equal(t, "1/8", resp.Results[1].Sum)
	assert.Equal(t, []string{"m", "AA", "BB", "CC"}, resp.Results[1].Childs[0].Gene)
}

func TestClient_RemoteErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"At least two parents' genes must be provided"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Generate(context.Background(), Request{})
	require.Error(t, err)

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "At least two parents' genes must be provided", UserMessage(err))
}

func TestClient_RemoteErrorWithoutPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, GenericErrorMessage, UserMessage(err))
}

func TestClient_MissingResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foo":1}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, GenericErrorMessage, UserMessage(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, 0).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, GenericErrorMessage, UserMessage(err))
}

func TestResult_EmptyDetection(t *testing.T) {
	var rs []Result
	require.NoError(t, json.Unmarshal([]byte(`[{}, {"unknown": true}, {"father": null}]`), &rs))
	assert.True(t, rs[0].Empty())
	assert.False(t, rs[1].Empty(), "any key makes the entry non-empty")
	assert.False(t, rs[2].Empty())

	assert.False(t, Result{Sum: "1/2"}.Empty())
}

func TestResult_ReencodesFieldsAsReceived(t *testing.T) {
	in := `{"father":["m","Aa","Bb","Cc"],"mother":["f","AA","BB","CC"],"sum":"","childs":[]}`
	var r Result
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}
