package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mouralws/internal/domain"
)

// Target é o destino das leituras: uma contagem ou um recebimento.
type Target struct {
	CountID     string
	ReceivingID string
}

func (t Target) path() (string, error) {
	switch {
	case t.CountID != "" && t.ReceivingID != "":
		return "", fmt.Errorf("informe apenas -count ou -receiving")
	case t.CountID != "":
		return "/v1/counts/" + url.PathEscape(t.CountID) + "/reads", nil
	case t.ReceivingID != "":
		return "/v1/receivings/" + url.PathEscape(t.ReceivingID) + "/reads", nil
	}
	return "", nil
}

// APIError é a resposta de erro padronizada da API.
type APIError struct {
	Status int
	domain.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API respondeu %d (%s): %s", e.Status, e.Category, e.Message)
}

// APIClient fala com o servidor Moura LWS em nome da estação.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// PostRead envia o código lido ao destino. Sem destino configurado não faz nada.
func (c *APIClient) PostRead(ctx context.Context, target Target, code string) error {
	path, err := target.path()
	if err != nil || path == "" {
		return err
	}
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), nil)
}

// ResolveLabel devolve a descrição da variante de uma etiqueta LWS.
func (c *APIClient) ResolveLabel(ctx context.Context, code string) (string, error) {
	var resolved domain.ResolvedLabel
	if err := c.do(ctx, http.MethodGet, "/v1/labels/resolve?code="+url.QueryEscape(code), nil, &resolved); err != nil {
		return "", err
	}
	return resolved.Variant.Label(), nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("falha ao chamar %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.ErrorResponse); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
