package master

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prealert/internal"
	"prealert/internal/config"
)

// Client pulls purchase-order lines from the Orion ERP export API.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Lines    []map[string]any `json:"lines"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.OrionTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.OrionRateLimitRPS),
	}
}

// GetPOLinesScrollAll pages through the full po-line export.
func (c *Client) GetPOLinesScrollAll(ctx context.Context) ([]internal.MasterRecord, error) {
	return c.getPOLinesScroll(ctx, map[string]string{})
}

// GetPOLinesIncremental fetches lines updated within the configured lookback.
func (c *Client) GetPOLinesIncremental(ctx context.Context) ([]internal.MasterRecord, error) {
	return c.getPOLinesScroll(ctx, map[string]string{
		"updated_days": strconv.Itoa(c.cfg.OrionLookbackDays),
	})
}

func (c *Client) getPOLinesScroll(ctx context.Context, params map[string]string) ([]internal.MasterRecord, error) {
	all := make([]internal.MasterRecord, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "po-line/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Lines {
			record, err := toMasterRecord(raw)
			if err != nil {
				continue
			}
			all = append(all, record)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Lines) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.OrionAPIToken) == "" {
		return nil, errors.New("missing ORION_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.OrionAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.OrionAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("orion status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("orion api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("orion api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("orion request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toMasterRecord(raw map[string]any) (internal.MasterRecord, error) {
	po := toString(raw["poNumber"])
	if po == "" {
		return internal.MasterRecord{}, errors.New("missing poNumber")
	}

	return internal.MasterRecord{
		PONumber:     po,
		SupplierCode: toString(raw["supplierItemCode"]),
		MasterCode:   toString(raw["orionItemCode"]),
		Description:  toString(raw["itemDesc"]),
		UnitPrice:    toString(raw["unitRate"]),
		Quantity:     toString(raw["qty"]),
	}, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
