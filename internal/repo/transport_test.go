package repo

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/angsh-d/clinops-intel-sub000/internal/cache"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestCoreClient(rt roundTripFunc) *CoreClient {
	client := NewCoreClient("https://core.example", "", time.Second, cache.New(time.Minute))
	client.httpClient = newTestClient(rt)
	return client
}
