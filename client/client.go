package qodesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

// Client is a REST client for the qode engine API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a client for a server listening on TCP.
// baseURL: e.g. http://localhost:8080
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// NewClientUnix creates a client that talks HTTP over a Unix domain socket.
// socketPath: path to the unix domain socket; requests use URL http://unix/...
func NewClientUnix(socketPath string) *Client {
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return net.Dial("unix", socketPath)
	}
	transport := &http.Transport{
		DialContext:           dial,
		DisableCompression:    true,
		MaxIdleConnsPerHost:   2,
		ResponseHeaderTimeout: 0,
	}
	return &Client{
		baseURL:    "http://unix",
		httpClient: &http.Client{Transport: transport},
	}
}

// SetToken installs a bearer token for subsequent requests. Login does this
// automatically; SetToken covers tokens obtained elsewhere.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response decoded from the server's error payload.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// do performs one request and decodes the JSON response into result.
func (c *Client) do(method, path string, query url.Values, body any, result any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload ErrorPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}
		}
		return &APIError{Status: resp.StatusCode, Code: payload.Code, Message: payload.Message}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil, nil)
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(email, password string) (*LoginResult, error) {
	type params struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var result LoginResult
	if err := c.do(http.MethodPost, "/login", nil, params{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Logout revokes the client's token.
func (c *Client) Logout() error {
	if err := c.do(http.MethodPost, "/logout", nil, nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// ListResources fetches the resource catalog.
func (c *Client) ListResources() (*ResourcesResult, error) {
	var result ResourcesResult
	if err := c.do(http.MethodGet, "/resources", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Connect asks the server to open a session for a resource.
func (c *Client) Connect(resourceName string) (*ConnectResult, error) {
	type params struct {
		ResourceName string `json:"resourceName"`
	}
	var result ConnectResult
	if err := c.do(http.MethodPost, "/connections", nil, params{ResourceName: resourceName}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Relations lists the tables and views of a connected resource.
func (c *Client) Relations(resourceName string) (*RelationsResult, error) {
	path := fmt.Sprintf("/resources/%s/relations", url.PathEscape(resourceName))
	var result RelationsResult
	if err := c.do(http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Columns lists the columns of one relation.
func (c *Client) Columns(resourceName, relationName string) (*ColumnsResult, error) {
	path := fmt.Sprintf("/resources/%s/relations/%s/columns",
		url.PathEscape(resourceName), url.PathEscape(relationName))
	var result ColumnsResult
	if err := c.do(http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TableStats fetches row counts and timestamp bounds for one relation.
func (c *Client) TableStats(resourceName, relationName string) (*TableStats, error) {
	path := fmt.Sprintf("/resources/%s/relations/%s/stats",
		url.PathEscape(resourceName), url.PathEscape(relationName))
	var result TableStats
	if err := c.do(http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecQuery submits a query for asynchronous execution. params may be nil, a
// positional slice or a named map; it is forwarded as-is.
func (c *Client) ExecQuery(resourceName, query string, params any, options *QueryExecOptions) (*QueryExecResult, error) {
	type payload struct {
		ResourceName string            `json:"resourceName"`
		Query        string            `json:"query"`
		Params       json.RawMessage   `json:"params,omitempty"`
		Options      *QueryExecOptions `json:"options,omitempty"`
	}
	body := payload{ResourceName: resourceName, Query: query, Options: options}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		body.Params = raw
	}
	var result QueryExecResult
	if err := c.do(http.MethodPost, "/queries", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelQuery cancels a running job.
func (c *Client) CancelQuery(jobID string) error {
	path := fmt.Sprintf("/queries/%s/cancel", url.PathEscape(jobID))
	return c.do(http.MethodPost, path, nil, nil, nil)
}

// QueryResult fetches a page of a finished query's result. limit and offset
// are optional; nil means the server defaults.
func (c *Client) QueryResult(jobID string, limit, offset *int) (*QueryResultPage, error) {
	path := fmt.Sprintf("/queries/%s/result", url.PathEscape(jobID))
	query := url.Values{}
	if limit != nil {
		query.Set("limit", strconv.Itoa(*limit))
	}
	if offset != nil {
		query.Set("offset", strconv.Itoa(*offset))
	}
	var result QueryResultPage
	if err := c.do(http.MethodGet, path, query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Translate turns a natural language question into SQL for a resource.
func (c *Client) Translate(resourceName, question string) (*TranslateResult, error) {
	type params struct {
		ResourceName string `json:"resourceName"`
		Question     string `json:"question"`
	}
	var result TranslateResult
	if err := c.do(http.MethodPost, "/translate", nil, params{ResourceName: resourceName, Question: question}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History lists the caller's saved queries, newest first. limit <= 0 means
// the server default.
func (c *Client) History(limit int) (*HistoryResult, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var result HistoryResult
	if err := c.do(http.MethodGet, "/history", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveHistory archives a finished job's query and result. name and input are
// optional labels.
func (c *Client) SaveHistory(jobID, name, input string) (*SaveHistoryResult, error) {
	type params struct {
		JobID string `json:"jobId"`
		Name  string `json:"name,omitempty"`
		Input string `json:"input,omitempty"`
	}
	var result SaveHistoryResult
	if err := c.do(http.MethodPost, "/history", nil, params{JobID: jobID, Name: name, Input: input}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HistorySQL returns the SQL text of a saved query.
func (c *Client) HistorySQL(folder string) (string, error) {
	path := fmt.Sprintf("/history/%s/sql", url.PathEscape(folder))
	var result struct {
		SQL string `json:"sql"`
	}
	if err := c.do(http.MethodGet, path, nil, nil, &result); err != nil {
		return "", err
	}
	return result.SQL, nil
}

// LatestTick fetches the most recent cached bar for a symbol.
func (c *Client) LatestTick(symbol string) (*TickResult, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	var result TickResult
	if err := c.do(http.MethodGet, "/ticks/latest", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Instruments lists the symbols present in the hot cache.
func (c *Client) Instruments() (*InstrumentsResult, error) {
	var result InstrumentsResult
	if err := c.do(http.MethodGet, "/ticks/instruments", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
