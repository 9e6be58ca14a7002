package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"retail-dashboard/internal/config"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

const restPath = "/rest/v1/"

// RESTGateway talks to a PostgREST-style HTTP API: one path per table, column
// filters as "col=op.value" query parameters.
type RESTGateway struct {
	baseURL string
	apiKey  string
	tables  Tables
	client  *http.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewRESTGateway(cfg config.BackendConfig, metrics *observability.Metrics, logger *slog.Logger) *RESTGateway {
	return &RESTGateway{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		tables:  TablesFrom(cfg),
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		metrics: metrics,
		logger:  logger,
	}
}

func (g *RESTGateway) FetchTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	sel := selectClause(q.Columns)
	if q.WithItems {
		sel += ",items:" + g.tables.LineItems + "(*)"
	}

	params := url.Values{}
	params.Set("select", sel)
	if q.Status != "" {
		op := q.StatusOp
		if op == "" {
			op = OpEq
		}
		params.Add("status", string(op)+"."+q.Status)
	}
	addTimeRange(params, "created_at", q.From, q.To)
	params.Set("order", "created_at.asc")

	var rows []models.Transaction
	if err := g.get(ctx, g.tables.Transactions, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *RESTGateway) FetchInventory(ctx context.Context, q InventoryQuery) ([]models.InventoryItem, error) {
	params := url.Values{}
	params.Set("select", selectClause(q.Columns))
	if q.MaxQuantity != nil {
		params.Add("quantity", "lte."+strconv.Itoa(*q.MaxQuantity))
	}
	params.Set("order", "name.asc")

	var rows []models.InventoryItem
	if err := g.get(ctx, g.tables.Inventory, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *RESTGateway) FetchLineItems(ctx context.Context, q LineItemQuery) ([]models.LineItem, error) {
	params := url.Values{}
	params.Set("select", selectClause(q.Columns))
	addTimeRange(params, "created_at", q.From, q.To)

	var rows []models.LineItem
	if err := g.get(ctx, g.tables.LineItems, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteTransaction asks for the deleted rows back so a missing id can be
// told apart from a successful delete.
func (g *RESTGateway) DeleteTransaction(ctx context.Context, id string) (err error) {
	collection := g.tables.Transactions
	ctx, span := observability.StartSpan(ctx, "gateway.delete", attribute.String("collection", collection))
	defer func() { observability.EndSpan(span, err) }()

	params := url.Values{}
	params.Set("id", "eq."+id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.endpoint(collection, params), nil)
	if err != nil {
		return &QueryError{Collection: collection, Message: err.Error(), Err: err}
	}
	g.authorize(ctx, req)
	req.Header.Set("Prefer", "return=representation")

	var deleted []json.RawMessage
	if err := g.do(req, collection, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return &QueryError{Collection: collection, Status: http.StatusNotFound, Message: "no bill with id " + id, Err: ErrNotFound}
	}
	return nil
}

func (g *RESTGateway) get(ctx context.Context, collection string, params url.Values, dest any) (err error) {
	ctx, span := observability.StartSpan(ctx, "gateway.select", attribute.String("collection", collection))
	start := time.Now()
	defer func() {
		g.metrics.ObserveQuery(collection, time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(collection, params), nil)
	if err != nil {
		return &QueryError{Collection: collection, Message: err.Error(), Err: err}
	}
	g.authorize(ctx, req)

	if err := g.do(req, collection, dest); err != nil {
		g.logger.Warn("backend query failed", "collection", collection, "error", err)
		return err
	}
	return nil
}

func (g *RESTGateway) do(req *http.Request, collection string, dest any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &QueryError{Collection: collection, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeQueryError(collection, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &QueryError{Collection: collection, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

func (g *RESTGateway) endpoint(collection string, params url.Values) string {
	return g.baseURL + restPath + collection + "?" + params.Encode()
}

func (g *RESTGateway) authorize(ctx context.Context, req *http.Request) {
	req.Header.Set("apikey", g.apiKey)
	token := accessToken(ctx)
	if token == "" {
		token = g.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

type backendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func decodeQueryError(collection string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	qe := &QueryError{Collection: collection, Status: resp.StatusCode}

	var be backendError
	if err := json.Unmarshal(body, &be); err == nil && be.Message != "" {
		qe.Code = be.Code
		qe.Message = be.Message
		if be.Details != "" {
			qe.Message += ": " + be.Details
		}
	} else {
		qe.Message = strings.TrimSpace(string(body))
		if qe.Message == "" {
			qe.Message = http.StatusText(resp.StatusCode)
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		qe.Err = ErrNotFound
	}
	return qe
}

func selectClause(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ",")
}

func addTimeRange(params url.Values, column string, from, to time.Time) {
	if !from.IsZero() {
		params.Add(column, "gte."+from.UTC().Format(time.RFC3339Nano))
	}
	if !to.IsZero() {
		params.Add(column, "lte."+to.UTC().Format(time.RFC3339Nano))
	}
}

var _ Gateway = (*RESTGateway)(nil)
