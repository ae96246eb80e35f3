package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/winelabs/wineserve/internal/config"
	"github.com/winelabs/wineserve/internal/dataset"
)

// Failure classes surfaced by the client. Transport failures cover the wire
// (connection problems, non-200 statuses); schema failures mean the scorer
// answered 200 with a body the client does not understand. Operators need to
// tell the two apart. ErrUnreachable narrows ErrTransport to connection-level
// failures, which the serving layer degrades to a fallback prediction.
var (
	ErrTransport   = errors.New("scorer transport failure")
	ErrUnreachable = fmt.Errorf("%w: endpoint unreachable", ErrTransport)
	ErrSchema      = errors.New("scorer schema mismatch")
)

const maxDiagnosticBody = 200

// Prediction is one scored row.
type Prediction struct {
	Quality    int
	Confidence map[string]float64
}

// Client posts feature batches to a remote model scoring endpoint.
type Client struct {
	invocationsURL string
	pingURL        string
	encoding       string
	httpClient     *http.Client
}

// NewClient constructs a scoring client for the configured endpoint.
func NewClient(cfg config.ScorerConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	pingURL := ""
	if base != "" {
		pingURL = base + "/ping"
	}
	return &Client{
		invocationsURL: cfg.InvocationsURL(),
		pingURL:        pingURL,
		encoding:       cfg.Encoding,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Configured reports whether a scoring endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.invocationsURL != ""
}

// Score posts the frame in a single request and returns one prediction per
// row, in input order.
func (c *Client) Score(ctx context.Context, frame *dataset.Frame) ([]Prediction, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: scoring endpoint not configured", ErrUnreachable)
	}

	body, contentType, err := c.encode(frame)
	if err != nil {
		return nil, fmt.Errorf("encode scoring payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invocationsURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: scorer returned %s: %s", ErrTransport, resp.Status, truncate(raw))
	}

	preds, err := parsePredictions(raw)
	if err != nil {
		return nil, err
	}
	if len(preds) != frame.NumRows() {
		return nil, fmt.Errorf("%w: sent %d rows, got %d predictions", ErrSchema, frame.NumRows(), len(preds))
	}
	return preds, nil
}

// Ping probes the scoring server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return fmt.Errorf("%w: scoring endpoint not configured", ErrUnreachable)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned %s", ErrTransport, resp.Status)
	}
	return nil
}

func (c *Client) encode(frame *dataset.Frame) ([]byte, string, error) {
	switch c.encoding {
	case config.EncodingCSV:
		var buf bytes.Buffer
		if err := frame.WriteCSV(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		payload := map[string]any{
			"dataframe_split": map[string]any{
				"columns": frame.Columns,
				"data":    frame.Rows,
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, "", err
		}
		return body, "application/json", nil
	}
}

// parsePredictions handles both response shapes the serving stack produces:
// {"predictions": [{"predict": n, "p5": ...}, ...]} and
// {"predictions": [n, ...]}, plus the bare top-level list some servers
// return. The shape is chosen by inspecting the first element.
func parsePredictions(raw []byte) ([]Prediction, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %s", ErrSchema, truncate(raw))
	}

	var rows []any
	switch v := decoded.(type) {
	case map[string]any:
		inner, ok := v["predictions"]
		if !ok {
			return nil, fmt.Errorf("%w: object without predictions key: %s", ErrSchema, truncate(raw))
		}
		rows, ok = inner.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: predictions is not a list: %s", ErrSchema, truncate(raw))
		}
	case []any:
		rows = v
	default:
		return nil, fmt.Errorf("%w: unexpected response shape: %s", ErrSchema, truncate(raw))
	}

	preds := make([]Prediction, 0, len(rows))
	for i, row := range rows {
		switch cell := row.(type) {
		case float64:
			preds = append(preds, Prediction{Quality: int(cell)})
		case map[string]any:
			pred, err := parseObjectRow(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrSchema, i, err)
			}
			preds = append(preds, pred)
		default:
			return nil, fmt.Errorf("%w: row %d has unexpected type", ErrSchema, i)
		}
	}
	return preds, nil
}

func parseObjectRow(row map[string]any) (Prediction, error) {
	rawPredict, ok := row["predict"]
	if !ok {
		return Prediction{}, fmt.Errorf("missing predict key")
	}
	quality, ok := rawPredict.(float64)
	if !ok {
		return Prediction{}, fmt.Errorf("predict is not numeric")
	}

	confidence := map[string]float64{}
	for key, value := range row {
		if key == "predict" || !strings.HasPrefix(key, "p") || len(key) < 2 {
			continue
		}
		score, ok := value.(float64)
		if !ok {
			continue
		}
		confidence["quality_"+key[1:]] = score
	}
	return Prediction{Quality: int(quality), Confidence: confidence}, nil
}

func truncate(body []byte) string {
	if len(body) > maxDiagnosticBody {
		return string(body[:maxDiagnosticBody]) + "..."
	}
	return string(body)
}
