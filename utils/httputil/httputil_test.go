package httputil

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendAcceptedCodes(t *testing.T) {
	require := require.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer s.Close()

	_, err := Get(s.URL)
	require.Error(err)
	require.True(IsStatus(err, http.StatusAccepted))

	resp, err := Get(s.URL, SendAcceptedCodes(http.StatusAccepted))
	require.NoError(err)
	resp.Body.Close()
}

func TestSendHeadersAndBody(t *testing.T) {
	require := require.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("baz", r.Header.Get("X-Foo"))
		b, err := ioutil.ReadAll(r.Body)
		require.NoError(err)
		w.Write(b)
	}))
	defer s.Close()

	resp, err := Post(s.URL,
		SendBody(bytes.NewBufferString("hello")),
		SendHeaders(map[string]string{"X-Foo": "baz"}))
	require.NoError(err)
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	require.NoError(err)
	require.Equal("hello", string(b))
}

func TestStatusErrorIncludesResponse(t *testing.T) {
	require := require.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad input"))
	}))
	defer s.Close()

	_, err := Put(s.URL)
	require.Error(err)
	require.Contains(err.Error(), "bad input")
}
