package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			JSONRPC string          `json:"jsonrpc"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
			ID      uint64          `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, rerr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCall_Result(t *testing.T) {
	srv := rpcServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "echo", method)
		assert.JSONEq(t, `{"x":1}`, string(params))
		return map[string]int{"y": 2}, nil
	})

	var out struct{ Y int }
	err := New(srv.URL).Call(context.Background(), "echo", map[string]int{"x": 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Y)
}

func TestCall_RPCError(t *testing.T) {
	srv := rpcServer(t, func(string, json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: 2001, Message: "unknown era"}
	})

	err := New(srv.URL).Call(context.Background(), "x", nil, nil)
	var rerr *RPCError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 2001, rerr.Code)
	assert.Equal(t, "unknown era", rerr.Message)
}

func TestCall_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).Call(context.Background(), "x", nil, nil)
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusBadGateway, herr.StatusCode)
}

func TestCall_Unreachable(t *testing.T) {
	err := NewWithTimeout("http://127.0.0.1:1", time.Second).Call(context.Background(), "x", nil, nil)
	assert.Error(t, err)
}

func TestCall_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := New(srv.URL).Call(ctx, "x", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_IncrementingIDs(t *testing.T) {
	var ids []uint64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.ID)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":null,"id":1}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.Call(context.Background(), "a", nil, nil))
	require.NoError(t, c.Call(context.Background(), "b", nil, nil))
	assert.Equal(t, []uint64{1, 2}, ids)
}
