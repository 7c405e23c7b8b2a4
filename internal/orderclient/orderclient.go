package orderclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/orderclient/config"
)

// OrderClient - клиент внешнего сервиса заказов.
type OrderClient interface {
	ListOrders(ctx context.Context, filter model.OrderFilter, page int) (model.OrderList, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ConfirmOrder(ctx context.Context, id string) (model.Order, error)
	ConfirmDeposit30(ctx context.Context, id string) (model.Order, error)
	ConfirmPaid100(ctx context.Context, id string) (model.Order, error)
	ConfirmPaidRemaining70(ctx context.Context, id string) (model.Order, error)
	CompleteService(ctx context.Context, id string) (model.Order, error)
	// OnListed подписывает на каждый успешно полученный список заказов
	OnListed(fn func(model.OrderList))
}

var (
	ErrNotFound = errors.New("order not found")
)

// APIError - отказ сервиса заказов, Message берётся из тела ответа.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order service status: %d", e.StatusCode)
	}
	return fmt.Sprintf("order service status: %d: %s", e.StatusCode, e.Message)
}

type errorAnswer struct {
	Message string `json:"message"`
}

const (
	ordersPath = "/api/orders"

	breakerName = "order-service"
)

type orderClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]

	mu       sync.Mutex
	onListed []func(model.OrderList)
}

func NewOrderClient(cfg config.Config) OrderClient {
	client := resty.New().
		SetBaseURL(cfg.ServiceAddr).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &orderClient{client: client, breaker: breaker}
}

func (c *orderClient) OnListed(fn func(model.OrderList)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onListed = append(c.onListed, fn)
}

func (c *orderClient) ListOrders(ctx context.Context, filter model.OrderFilter, page int) (model.OrderList, error) {
	params := map[string]string{}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if filter.Limit > 0 {
		params["limit"] = strconv.Itoa(filter.Limit)
	}
	if filter.Status != "" {
		params["status"] = filter.Status
	}

	body, err := c.send(ctx, http.MethodGet, ordersPath, params)
	if err != nil {
		return model.OrderList{}, err
	}

	var list model.OrderList
	if err = json.Unmarshal(body, &list); err != nil {
		return model.OrderList{}, pkgerrors.Wrap(err, "decode order list")
	}
	// подписчикам нужен номер страницы, даже если сервер его не вернул
	if list.Pagination.Page == 0 && page > 0 {
		list.Pagination.Page = page
	}

	c.mu.Lock()
	listeners := append([]func(model.OrderList){}, c.onListed...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(list)
	}

	return list, nil
}

func (c *orderClient) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodGet, orderPath(id, ""))
}

func (c *orderClient) ConfirmOrder(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodPatch, orderPath(id, "confirm"))
}

func (c *orderClient) ConfirmDeposit30(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodPatch, orderPath(id, "confirm-deposit-30"))
}

func (c *orderClient) ConfirmPaid100(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodPatch, orderPath(id, "confirm-paid-100"))
}

func (c *orderClient) ConfirmPaidRemaining70(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodPatch, orderPath(id, "confirm-paid-remaining-70"))
}

func (c *orderClient) CompleteService(ctx context.Context, id string) (model.Order, error) {
	return c.order(ctx, http.MethodPatch, orderPath(id, "complete-service"))
}

func orderPath(id, action string) string {
	path := ordersPath + "/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *orderClient) order(ctx context.Context, method, path string) (model.Order, error) {
	body, err := c.send(ctx, method, path, nil)
	if err != nil {
		return model.Order{}, err
	}

	var order model.Order
	if err = json.Unmarshal(body, &order); err != nil {
		return model.Order{}, pkgerrors.Wrap(err, "decode order")
	}
	return order, nil
}

func (c *orderClient) send(ctx context.Context, method, path string, params map[string]string) ([]byte, error) {
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Execute(method, path)
		if err != nil {
			return nil, err
		}
		// 5xx - сбой сервиса, 4xx - ответ по существу
		if r.StatusCode() >= http.StatusInternalServerError {
			return r, fmt.Errorf("order service status: %d", r.StatusCode())
		}
		return r, nil
	})
	if err != nil && resp == nil {
		return nil, pkgerrors.Wrapf(err, "%s %s", method, path)
	}

	switch {
	case resp.IsSuccess():
		return resp.Body(), nil
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		var answer errorAnswer
		_ = json.Unmarshal(resp.Body(), &answer)
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: answer.Message}
	}
}
