package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a ledger response is read
const maxResponseBytes = 4 << 20

type tokenKey struct{}

// WithBearerToken attaches the operator's credential for outgoing ledger calls
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func bearerToken(ctx context.Context, operator *collection.Operator) string {
	if operator != nil && operator.Token != "" {
		return operator.Token
	}
	if t, ok := ctx.Value(tokenKey{}).(string); ok {
		return t
	}
	return ""
}

// envelope mirrors the {success, data, error, meta} response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

// Client implements collection.LedgerGateway against the remote ledger REST API
type Client struct {
	baseURL    string
	httpClient Doer
}

// NewClient creates a Client. baseURL is the API root, e.g. https://ledger.example.com/api/v1
func NewClient(baseURL string, httpClient Doer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchPendingSales calls GET /sales/pending
func (c *Client) FetchPendingSales(ctx context.Context, operator *collection.Operator) ([]collection.OutstandingSale, error) {
	var sales []collection.OutstandingSale
	if _, err := c.do(ctx, http.MethodGet, "/sales/pending", nil, bearerToken(ctx, operator), &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// SubmitReconciliation calls POST /collections
func (c *Client) SubmitReconciliation(ctx context.Context, record *collection.ReconciliationRecord) (*collection.SubmissionReceipt, error) {
	var receipt collection.SubmissionReceipt
	if _, err := c.do(ctx, http.MethodPost, "/collections", record, bearerToken(ctx, nil), &receipt); err != nil {
		return nil, err
	}
	return normalizeReceipt(&receipt, record.ID), nil
}

// SubmitPartialPayment calls POST /collections/partial
func (c *Client) SubmitPartialPayment(ctx context.Context, record *collection.PartialPaymentRecord) (*collection.SubmissionReceipt, error) {
	var receipt collection.SubmissionReceipt
	if _, err := c.do(ctx, http.MethodPost, "/collections/partial", record, bearerToken(ctx, nil), &receipt); err != nil {
		return nil, err
	}
	return normalizeReceipt(&receipt, record.ID), nil
}

// DeleteReconciliation calls DELETE /collections/{id}
func (c *Client) DeleteReconciliation(ctx context.Context, operator *collection.Operator, recordID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(recordID), nil, bearerToken(ctx, operator), nil)
	return err
}

// ListReconciliations calls GET /collections with paging and date filters
func (c *Client) ListReconciliations(ctx context.Context, operator *collection.Operator, filter collection.HistoryFilter) ([]collection.ReconciliationRecord, int64, error) {
	filter.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("page_size", strconv.Itoa(filter.PageSize))
	if filter.From != nil {
		q.Set("from", filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		q.Set("to", filter.To.UTC().Format(time.RFC3339))
	}

	var records []collection.ReconciliationRecord
	env, err := c.do(ctx, http.MethodGet, "/collections?"+q.Encode(), nil, bearerToken(ctx, operator), &records)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(records))
	if env.Meta != nil {
		total = env.Meta.Total
	}
	return records, total, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, out any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ledger request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	log := logger.L(ctx).With(zap.String("method", method), zap.String("path", path))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		log.Warn("Ledger request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, collection.NewRemoteError("LEDGER_UNAVAILABLE", "", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, collection.NewRemoteError("LEDGER_UNAVAILABLE", "", resp.StatusCode, err)
	}
	log.Debug("Ledger response", zap.Int("status_code", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, collection.ErrSessionExpired
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && len(bytes.TrimSpace(raw)) == 0 {
		return &envelope{Success: true}, nil
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return nil, remoteFailure(resp.StatusCode, &env, decodeErr)
	}
	if decodeErr != nil {
		return nil, collection.NewRemoteError("INVALID_RESPONSE", "", resp.StatusCode, decodeErr)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, collection.NewRemoteError("INVALID_RESPONSE", "", resp.StatusCode, err)
		}
	}
	return &env, nil
}

// remoteFailure keeps the ledger's own message when it sent one
func remoteFailure(status int, env *envelope, decodeErr error) error {
	if decodeErr == nil && env.Error != nil {
		code := env.Error.Code
		if code == "" {
			code = "LEDGER_REJECTED"
		}
		return collection.NewRemoteError(code, strings.TrimSpace(env.Error.Message), status, nil)
	}
	cause := decodeErr
	if cause == nil {
		cause = errors.New("ledger returned an unsuccessful response")
	}
	return collection.NewRemoteError("LEDGER_ERROR", "", status, fmt.Errorf("status %d: %w", status, cause))
}

func normalizeReceipt(r *collection.SubmissionReceipt, recordID string) *collection.SubmissionReceipt {
	if r.RecordID == "" {
		r.RecordID = recordID
	}
	if r.AcceptedAt.IsZero() {
		r.AcceptedAt = time.Now()
	}
	return r
}

var _ collection.LedgerGateway = (*Client)(nil)
