package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
)

// RequestOption настраивает тестовый запрос к API.
type RequestOption func(r *http.Request) error

// Serve прогоняет запрос через обработчик и возвращает записанный ответ.
func Serve(h http.Handler, method, url string, opts ...RequestOption) (*http.Response, error) {
	req := httptest.NewRequest(method, url, http.NoBody)
	for _, opt := range opts {
		if err := opt(req); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
	}
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	return recorder.Result(), nil
}

// WithJSON тело запроса в JSON. Срез байт уходит как есть, это нужно для проверки битых тел.
func WithJSON(payload any) RequestOption {
	return func(r *http.Request) error {
		raw, ok := payload.([]byte)
		if !ok {
			var err error
			if raw, err = json.Marshal(payload); err != nil {
				return fmt.Errorf("encoding payload: %w", err)
			}
		}
		r.Body = http.NoBody
		if len(raw) > 0 {
			r.Body = io.NopCloser(bytes.NewReader(raw))
		}
		r.ContentLength = int64(len(raw))
		r.Header.Set("Content-Type", "application/json")
		return nil
	}
}

// WithBearer авторизация по access-токену или API-ключу. Пустой токен запрос не меняет.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) error {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

func WithHeader(name, value string) RequestOption {
	return func(r *http.Request) error {
		r.Header.Set(name, value)
		return nil
	}
}
