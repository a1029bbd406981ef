package truedata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qodeinvest/qode-engine/internal/model"
)

const (
	defaultAuthURL    = "https://auth.truedata.in/token"
	defaultHistoryURL = "https://history.truedata.in"

	// MinuteStampLayout is the timestamp format the history API expects,
	// e.g. "240101T09:15" for the 09:15 bar on 2024-01-01.
	MinuteStampLayout = "060102T15:04"
)

// Market segments understood by the history API.
const (
	SegmentNSEEquity  = "eq"
	SegmentNSEFutOpt  = "fo"
	SegmentNSEIndex   = "ind"
	SegmentBSEEquity  = "bseeq"
	SegmentBSEFutOpt  = "bsefo"
	SegmentBSEIndex   = "bseind"
)

// SegmentBar is one instrument's bar for a single minute of a segment.
type SegmentBar struct {
	SymbolID string
	Symbol   string
	Bar      model.Bar
}

// Config provides optional overrides for the TrueData endpoints.
type Config struct {
	AuthURL    string
	HistoryURL string
	LoginID    string
	Password   string
	Timeout    time.Duration
}

// Client talks to the TrueData history API. Tokens are fetched lazily and
// refreshed shortly before they expire.
type Client struct {
	authURL    string
	historyURL string
	loginID    string
	password   string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient builds a configured TrueData API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.LoginID == "" {
		return nil, fmt.Errorf("truedata login id is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("truedata password is required")
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	historyURL := cfg.HistoryURL
	if historyURL == "" {
		historyURL = defaultHistoryURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		authURL:    authURL,
		historyURL: strings.TrimRight(historyURL, "/"),
		loginID:    cfg.LoginID,
		password:   cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) Name() string {
	return "truedata"
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate exchanges the login credentials for a bearer token using the
// password grant. It is called automatically before the first data request.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.loginID)
	form.Set("password", c.password)
	form.Set("grant_type", "password")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("truedata auth %s: %s", resp.Status, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("truedata auth returned an empty access token")
	}

	expiresIn := token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	c.mu.Unlock()
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	valid := c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute
	token := c.accessToken
	c.mu.Unlock()
	if valid {
		return token, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.accessToken
	c.mu.Unlock()
	return token, nil
}

// AllBars fetches every instrument's bar for one minute of a segment. An empty
// slice means the venue produced no data for that minute.
func (c *Client) AllBars(ctx context.Context, segment string, minute time.Time) ([]SegmentBar, error) {
	if segment == "" {
		return nil, fmt.Errorf("segment is required")
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(c.historyURL + "/getAllBars")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("segment", segment)
	q.Set("timestamp", minute.Format(MinuteStampLayout))
	q.Set("response", "csv")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for segment %s: %w", segment, err)
	}
	return ParseBarsCSV(body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	var attempt int
	for {
		attempt++
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if shouldRetry(attempt, 0) {
				sleep(attempt)
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return body, err
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()

		if shouldRetry(attempt, resp.StatusCode) {
			sleep(attempt)
			continue
		}
		return nil, fmt.Errorf("truedata API %s: %s", resp.Status, string(body))
	}
}

func shouldRetry(attempt int, status int) bool {
	if attempt >= 5 {
		return false
	}
	if status == 0 {
		return true
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	return false
}

func sleep(attempt int) {
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	time.Sleep(backoff)
}

var barTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseBarsCSV decodes the CSV body of a getAllBars response. The header row
// names the columns; unknown columns are ignored and a missing oi column
// yields zero open interest.
func ParseBarsCSV(body []byte) ([]SegmentBar, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["timestamp"]; !ok {
		return nil, fmt.Errorf("csv response has no timestamp column")
	}

	var bars []SegmentBar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		ts, err := parseBarTimestamp(fieldAt(record, cols, "timestamp"))
		if err != nil {
			return nil, err
		}

		bar := SegmentBar{
			SymbolID: fieldAt(record, cols, "symbolid"),
			Symbol:   fieldAt(record, cols, "symbol"),
			Bar: model.Bar{
				Timestamp:    ts,
				Open:         floatAt(record, cols, "open"),
				High:         floatAt(record, cols, "high"),
				Low:          floatAt(record, cols, "low"),
				Close:        floatAt(record, cols, "close"),
				Volume:       floatAt(record, cols, "volume"),
				OpenInterest: floatAt(record, cols, "oi"),
			},
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func fieldAt(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func floatAt(record []string, cols map[string]int, name string) float64 {
	raw := fieldAt(record, cols, name)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseBarTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("csv row has an empty timestamp")
	}
	for _, layout := range barTimestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
