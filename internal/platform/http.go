package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	duplicateItemMutation = `mutation ($board: ID!, $item: ID!) {
  duplicate_item (board_id: $board, item_id: $item, with_updates: false) { id }
}`
	changeColumnsMutation = `mutation ($board: ID!, $item: ID!, $values: JSON!) {
  change_multiple_column_values (board_id: $board, item_id: $item, column_values: $values) { id }
}`
)

// Columns names the board columns written by UpdateItem.
type Columns struct {
	Date   string
	Person string
	Status string
}

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RatePerSec int
	Columns    Columns
	HTTP       *http.Client
}

// HTTPClient is a GraphQL client for a monday.com style board API.
type HTTPClient struct {
	url     string
	token   string
	timeout time.Duration
	columns Columns
	http    *http.Client
	limiter *rate.Limiter
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		url:     cfg.URL,
		token:   cfg.Token,
		timeout: timeout,
		columns: cfg.Columns,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// APIError carries the GraphQL error messages returned by the board API.
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return "platform api: " + strings.Join(e.Messages, "; ")
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func (c *HTTPClient) CloneItem(ctx context.Context, templateItemID, boardID string) (string, error) {
	var out struct {
		DuplicateItem *struct {
			ID string `json:"id"`
		} `json:"duplicate_item"`
	}
	err := c.do(ctx, duplicateItemMutation, map[string]any{"board": boardID, "item": templateItemID}, &out)
	if err != nil {
		return "", fmt.Errorf("duplicate item %s: %w", templateItemID, err)
	}
	if out.DuplicateItem == nil || out.DuplicateItem.ID == "" {
		return "", fmt.Errorf("duplicate item %s: empty response", templateItemID)
	}
	return out.DuplicateItem.ID, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, boardID, itemID string, update ItemUpdate) error {
	values, err := c.columnValues(update)
	if err != nil {
		return fmt.Errorf("update item %s: %w", itemID, err)
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("update item %s: %w", itemID, err)
	}
	vars := map[string]any{"board": boardID, "item": itemID, "values": string(raw)}
	if err := c.do(ctx, changeColumnsMutation, vars, nil); err != nil {
		return fmt.Errorf("update item %s: %w", itemID, err)
	}
	return nil
}

func (c *HTTPClient) columnValues(update ItemUpdate) (map[string]any, error) {
	values := map[string]any{}
	if c.columns.Date != "" && !update.ScheduledDate.IsZero() {
		values[c.columns.Date] = map[string]string{"date": update.ScheduledDate.UTC().Format("2006-01-02")}
	}
	if c.columns.Status != "" && update.Status != "" {
		values[c.columns.Status] = map[string]string{"label": update.Status}
	}
	if c.columns.Person != "" && update.Assignee != "" {
		id, err := strconv.ParseInt(update.Assignee, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("assignee %q is not a numeric user id", update.Assignee)
		}
		values[c.columns.Person] = map[string]any{
			"personsAndTeams": []map[string]any{{"id": id, "kind": "person"}},
		}
	}
	return values, nil
}

func (c *HTTPClient) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gr gqlResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		apiErr := &APIError{}
		for _, e := range gr.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}
	if out != nil && len(gr.Data) > 0 {
		if err := json.Unmarshal(gr.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
