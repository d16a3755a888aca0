// Package client HTTP клиент почтового провайдера.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const RouteSendEmail = "/emails"

// Константы минимального и максимально значения в заголовке Retry-After.
const (
	minRetryAfter     = 1
	maxRetryAfter     = 120
	defaultRetryAfter = 60
)

const defaultTimeout = 10 * time.Second

type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// HTTPClient клиент API отправки писем.
type HTTPClient struct {
	client *resty.Client
}

// New создает клиент провайдера по адресу API. Ключ передается в заголовке Authorization.
func New(baseURL, apiKey string) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPClient{client: c}
}

// Send отправляет письмо и возвращает его идентификатор у провайдера.
// При ответе сервера со статусом отличным от 2xx, возвращает ошибку StatusCodeError, или
// TooManyRequestError в случае http.StatusTooManyRequests.
func (c *HTTPClient) Send(ctx context.Context, email Email) (string, error) {
	var result sendResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(email).
		SetResult(&result).
		Post(RouteSendEmail)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return "", NewTooManyRequestError(parseRetryAfter(resp.Header().Get("Retry-After")))
	}

	if !resp.IsSuccess() {
		return "", NewStatusCodeError(resp.StatusCode())
	}

	return result.ID, nil
}

// parseRetryAfter значение заголовка Retry-After в секундах. Неверные значения заменяются на
// defaultRetryAfter.
func parseRetryAfter(value string) time.Duration {
	minValue := decimal.NewFromInt(minRetryAfter)
	maxValue := decimal.NewFromInt(maxRetryAfter)

	retryAfter, parseErr := decimal.NewFromString(value)
	if parseErr != nil || retryAfter.LessThan(minValue) || retryAfter.GreaterThan(maxValue) {
		retryAfter = decimal.NewFromInt(defaultRetryAfter)
	}
	return time.Duration(retryAfter.Ceil().IntPart()) * time.Second
}
