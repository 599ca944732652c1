package spira

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

// HTTPClient is the part of *http.Client used by Transport, so tests can
// substitute their own.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Transport sends one authenticated JSON POST per call. It never retries:
// the record endpoint creates a new run on every request.
type Transport struct {
	client HTTPClient
	log    logr.Logger
}

// NewTransport returns a Transport that logs every exchange to log.
func NewTransport(client HTTPClient, log logr.Logger) *Transport {
	return &Transport{client: client, log: log}
}

// Post sends body to url and returns the trimmed response text of a 2xx
// answer. Any other outcome is a *TransportError.
func (t *Transport) Post(url, authorization string, body []byte) (string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	// The size is known up front, so the body is never sent chunked.
	req.ContentLength = int64(len(body))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Info("Spira request failed", "method", http.MethodPost, "url", url, "request", string(body), "error", err.Error())
		return "", &TransportError{URL: url, Err: err}
	}

	var text string
	if resp.Body != nil {
		defer resp.Body.Close()
		data, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			t.log.Info("Spira response unreadable", "method", http.MethodPost, "url", url, "request", string(body), "code", resp.StatusCode)
			return "", &TransportError{URL: url, StatusCode: resp.StatusCode, Err: err}
		}
		text = strings.TrimSpace(string(data))
	}

	t.log.Info("Spira exchange",
		"method", http.MethodPost,
		"url", url,
		"request", string(body),
		"code", resp.StatusCode,
		"response", text)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{URL: url, StatusCode: resp.StatusCode, Body: text}
	}
	return text, nil
}
