package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"anitrack/internal/episode"
	"anitrack/internal/logging"
	"anitrack/internal/services"
	"anitrack/internal/textutil"
)

const (
	defaultHTTPTimeout    = 5 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryDelay     = time.Second
	defaultSearchReferer  = "https://allmanga.to"
	defaultEpisodeReferer = "https://allanime.to"
	userAgent             = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	searchLimit           = 40
	maxResponseBytes      = 4 << 20
)

const episodesQuery = `query ($showId: String!) { show( _id: $showId ) { _id availableEpisodesDetail }}`

const searchQuery = `query( $search: SearchInput $limit: Int $page: Int $translationType: VaildTranslationTypeEnumType $countryOrigin: VaildCountryOriginEnumType ) { shows( search: $search limit: $limit page: $page translationType: $translationType countryOrigin: $countryOrigin ) { edges { _id name availableEpisodes __typename } }}`

// SearchResult is one catalogue hit, in the order the player lists them.
type SearchResult struct {
	ID   string
	Name string
}

// Client queries the catalogue's GraphQL endpoint.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	retryAttempts   int
	retryDelay      time.Duration
	searchReferer   string
	episodesReferer string
	modes           []string
	logger          *slog.Logger
	sleep           func(context.Context, time.Duration) error
	group           singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each individual request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRetry sets a fixed attempt count and pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithReferers overrides the Referer sent with search and episode queries.
func WithReferers(search, episodes string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(search); s != "" {
			c.searchReferer = s
		}
		if s := strings.TrimSpace(episodes); s != "" {
			c.episodesReferer = s
		}
	}
}

// WithModes sets the translation modes SelectIndex searches, in order.
// Duplicates are dropped.
func WithModes(modes ...string) Option {
	return func(c *Client) {
		var out []string
		for _, mode := range modes {
			mode = strings.ToLower(strings.TrimSpace(mode))
			if mode != "" && !slices.Contains(out, mode) {
				out = append(out, mode)
			}
		}
		if len(out) > 0 {
			c.modes = out
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry pauses are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New constructs a catalogue client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "metadata", "new client", fmt.Sprintf("invalid base url %q", baseURL), err)
	}
	client := &Client{
		baseURL:         parsed,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
		retryAttempts:   defaultRetryAttempts,
		retryDelay:      defaultRetryDelay,
		searchReferer:   defaultSearchReferer,
		episodesReferer: defaultEpisodeReferer,
		modes:           []string{"sub", "dub"},
		logger:          logging.NewNop(),
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.logger = logging.NewComponentLogger(client.logger, "metadata")
	return client, nil
}

// EpisodeList returns the show's episode labels in ascending order. Sub and
// dub listings are both read; the one whose length equals totalHint wins,
// otherwise the longer one. Concurrent calls for the same show share a request.
func (c *Client) EpisodeList(ctx context.Context, showID string, totalHint int) ([]string, error) {
	showID = strings.TrimSpace(showID)
	if showID == "" {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "episode list", "show id required", nil)
	}
	key := fmt.Sprintf("episodes:%s:%d", showID, totalHint)
	value, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetchEpisodes(ctx, showID, totalHint)
	})
	if err != nil {
		return nil, err
	}
	episodes := value.([]string)
	if shared {
		episodes = slices.Clone(episodes)
	}
	return episodes, nil
}

type episodesResponse struct {
	Data struct {
		Show *struct {
			ID      string                       `json:"_id"`
			Details map[string][]json.RawMessage `json:"availableEpisodesDetail"`
		} `json:"show"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

func (c *Client) fetchEpisodes(ctx context.Context, showID string, totalHint int) ([]string, error) {
	body, err := c.query(ctx, "episode list", episodesQuery, map[string]any{"showId": showID}, c.episodesReferer)
	if err != nil {
		return nil, err
	}
	var payload episodesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "episode list", "decode response", err)
	}
	if payload.Data.Show == nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "episode list", "show not found: "+showID, graphQLErrors(payload.Errors))
	}

	var candidates [][]string
	for _, mode := range []string{"sub", "dub"} {
		if labels := parseLabels(payload.Data.Show.Details[mode]); len(labels) > 0 {
			candidates = append(candidates, labels)
		}
	}
	episodes := chooseCandidate(candidates, totalHint)
	if len(episodes) == 0 {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "episode list", "no episodes listed for "+showID, nil)
	}
	slices.SortStableFunc(episodes, episode.CompareLabels)
	c.logger.Debug("episode list fetched",
		logging.String(logging.FieldShowID, showID),
		logging.Int("episode_count", len(episodes)),
	)
	return episodes, nil
}

// parseLabels accepts strings and bare numbers, skipping nulls and blanks.
func parseLabels(items []json.RawMessage) []string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		var value any
		decoder := json.NewDecoder(strings.NewReader(string(item)))
		decoder.UseNumber()
		if err := decoder.Decode(&value); err != nil {
			continue
		}
		var label string
		switch v := value.(type) {
		case string:
			label = strings.TrimSpace(v)
		case json.Number:
			label = v.String()
		default:
			continue
		}
		if label != "" && label != "null" {
			labels = append(labels, label)
		}
	}
	return labels
}

// chooseCandidate prefers an exact length match, then the longest listing
// (later listings win ties).
func chooseCandidate(candidates [][]string, totalHint int) []string {
	if totalHint > 0 {
		for _, candidate := range candidates {
			if len(candidate) == totalHint {
				return slices.Clone(candidate)
			}
		}
	}
	var best []string
	for _, candidate := range candidates {
		if best == nil || len(candidate) >= len(best) {
			best = candidate
		}
	}
	return slices.Clone(best)
}

type searchResponse struct {
	Data struct {
		Shows *struct {
			Edges []struct {
				ID   string `json:"_id"`
				Name string `json:"name"`
			} `json:"edges"`
		} `json:"shows"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Search runs a catalogue search in the given translation mode.
func (c *Client) Search(ctx context.Context, query, mode string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "search", "query required", nil)
	}
	if mode = strings.TrimSpace(mode); mode == "" {
		mode = "sub"
	}
	variables := map[string]any{
		"search": map[string]any{
			"allowAdult":   false,
			"allowUnknown": false,
			"query":        query,
		},
		"limit":           searchLimit,
		"page":            1,
		"translationType": mode,
		"countryOrigin":   "ALL",
	}
	body, err := c.query(ctx, "search", searchQuery, variables, c.searchReferer)
	if err != nil {
		return nil, err
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "search", "decode response", err)
	}
	if payload.Data.Shows == nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", "search", "no results", graphQLErrors(payload.Errors))
	}
	results := make([]SearchResult, 0, len(payload.Data.Shows.Edges))
	for _, edge := range payload.Data.Shows.Edges {
		if id := strings.TrimSpace(edge.ID); id != "" {
			results = append(results, SearchResult{ID: id, Name: strings.TrimSpace(edge.Name)})
		}
	}
	return results, nil
}

// SelectIndex finds the 1-based position the player's search menu will show
// for showID. Results are matched by id first, then by normalised title,
// over the sanitised and raw title queries and each configured mode.
func (c *Client) SelectIndex(ctx context.Context, showID, title string) (int, error) {
	raw := strings.TrimSpace(title)
	cleaned := textutil.SanitizeTitleForSearch(raw)
	queries := []string{cleaned}
	if raw != cleaned && raw != "" {
		queries = append(queries, raw)
	}
	base, _, _ := textutil.ParseTitleTotal(raw)
	target := textutil.NormalizeForMatch(base)

	var lastErr error
	for _, query := range queries {
		for _, mode := range c.modes {
			results, err := c.Search(ctx, query, mode)
			if err != nil {
				if ctx.Err() != nil {
					return 0, services.Wrap(services.ErrMetadataUnavailable, "metadata", "select index", "", ctx.Err())
				}
				lastErr = err
				continue
			}
			if idx := IndexByID(results, showID); idx > 0 {
				return idx, nil
			}
			if idx := IndexByTitle(results, target); idx > 0 {
				return idx, nil
			}
		}
	}
	if lastErr != nil {
		return 0, lastErr
	}
	return 0, services.Wrap(services.ErrMetadataUnavailable, "metadata", "select index", fmt.Sprintf("%q not found in search results", raw), nil)
}

// IndexByID returns the 1-based position of showID, or 0.
func IndexByID(results []SearchResult, showID string) int {
	for i, r := range results {
		if r.ID == showID {
			return i + 1
		}
	}
	return 0
}

// IndexByTitle returns the 1-based position of the first result whose
// normalised name equals target, or 0.
func IndexByTitle(results []SearchResult, target string) int {
	if target == "" {
		return 0
	}
	for i, r := range results {
		name, _, _ := textutil.ParseTitleTotal(r.Name)
		if textutil.NormalizeForMatch(name) == target {
			return i + 1
		}
	}
	return 0
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, textutil.Truncate(strings.TrimSpace(e.Body), 120))
}

func (c *Client) query(ctx context.Context, op, query string, variables any, referer string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	encoded, err := json.Marshal(variables)
	if err != nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", op, "encode variables", err)
	}
	endpoint := *c.baseURL
	params := endpoint.Query()
	params.Set("variables", string(encoded))
	params.Set("query", query)
	endpoint.RawQuery = params.Encode()

	var lastErr error
	attempts := max(c.retryAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.getOnce(ctx, endpoint.String(), referer)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(ctx, err) {
			break
		}
		c.logger.Debug("catalogue request failed; retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			lastErr = err
			break
		}
	}
	return nil, services.Wrap(services.ErrMetadataUnavailable, "metadata", op, "", lastErr)
}

func (c *Client) getOnce(ctx context.Context, endpoint, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Referer", referer)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// retryable reports whether a failed attempt is worth repeating: transport
// failures (including per-request timeouts) and 408, 429 or 5xx responses.
// Nothing is retried once the caller's context is done.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

func graphQLErrors(errs []graphQLError) error {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if m := strings.TrimSpace(e.Message); m != "" {
			messages = append(messages, m)
		}
	}
	return errors.New(strings.Join(messages, "; "))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
