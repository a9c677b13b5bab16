// Package api talks to the REST control plane of the chat service.
package api

import (
	"beam-chat/contract"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultBaseURL   = "https://beam.pro/api/v1/"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.3; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/41.0.2272.35 Safari/537.36"
	DefaultTimeout   = 15 * time.Second
)

// HTTPGateway issues REST calls relative to a base URL, sharing one cookie jar.
// It is safe for concurrent use.
type HTTPGateway struct {
	log       *slog.Logger
	baseURL   *url.URL
	client    *http.Client
	userAgent string
}

func NewHTTPGateway(log *slog.Logger, baseURL string, jar http.CookieJar, timeout time.Duration) (*HTTPGateway, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPGateway{
		log:       log,
		baseURL:   base,
		client:    &http.Client{Jar: jar, Timeout: timeout},
		userAgent: DefaultUserAgent,
	}, nil
}

func (g *HTTPGateway) BaseURL() *url.URL { return g.baseURL }

// Request sends payload as query string for GET and as a JSON body otherwise.
// Any status code is a valid response; only transport failures are errors.
func (g *HTTPGateway) Request(ctx context.Context, method, endpoint string, payload any) (contract.Response, error) {
	target, err := g.baseURL.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return contract.Response{}, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	var body io.Reader
	if method == http.MethodGet {
		query, err := toQuery(payload)
		if err != nil {
			return contract.Response{}, err
		}
		if len(query) > 0 {
			target.RawQuery = query.Encode()
		}
	} else if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return contract.Response{}, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return contract.Response{}, err
	}
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	res, err := g.client.Do(httpReq)
	if err != nil {
		return contract.Response{}, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return contract.Response{}, fmt.Errorf("read %s %s: %w", method, endpoint, err)
	}
	g.log.Debug("REST call", "method", method, "endpoint", endpoint, "status", res.StatusCode)
	return contract.Response{StatusCode: res.StatusCode, Body: data, Header: res.Header}, nil
}

// toQuery flattens url.Values, maps and structs (json tags) into a query string.
func toQuery(payload any) (url.Values, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	case map[string]string:
		values := url.Values{}
		for k, v := range p {
			values.Set(k, v)
		}
		return values, nil
	}
	fields := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &fields})
	if err != nil {
		return nil, err
	}
	if err = dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("query payload: %w", err)
	}
	values := url.Values{}
	for k, v := range fields {
		if v == nil {
			continue
		}
		values.Set(k, fmt.Sprint(v))
	}
	return values, nil
}
