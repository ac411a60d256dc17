package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crumplecup/botticelli/internal/config"
)

// apiClient wraps the control plane's HTTP API with auth-header injection
// and uniform JSON request/response handling.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limited := io.LimitReader(resp.Body, 4096)
		body, _ := io.ReadAll(limited)
		return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// resolveBaseURL returns addr if set, else derives http://<listen_addr> from
// the config file at configPath, falling back to localhost:8080.
func resolveBaseURL(configPath, addr string) (string, error) {
	if addr != "" {
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		return addr, nil
	}

	resolvedPath, err := config.ResolvePath(configPath)
	if err != nil {
		return "http://localhost:8080", nil
	}
	cfg, err := config.Load(resolvedPath)
	if err != nil {
		return "http://localhost:8080", nil
	}
	listen := cfg.Server.ListenAddr
	if listen == "" {
		listen = "localhost:8080"
	}
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	base := "http://" + listen
	if cfg.Server.BasePath != "" && cfg.Server.BasePath != "/" {
		base += cfg.Server.BasePath
	}
	return base, nil
}
