// Package pagination implementa a paginação por cursor (keyset) usada pelas listagens:
// ordenação created_at DESC, id DESC e cursor opaco com a última chave devolvida.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperror "mouralws/internal/errors"
)

// Cursor é a chave do último item de uma página.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// Page descreve o pedido de uma página.
type Page struct {
	Limit int
	After *Cursor
}

// Result é o envelope JSON devolvido pelas listagens.
type Result[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// Limits são os limites de tamanho de página vindos da configuração.
type Limits struct {
	Default int
	Max     int
}

// Encode serializa o cursor em base64url.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode interpreta um cursor opaco. String vazia devolve nil (primeira página).
func Decode(s string) (*Cursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperror.NewValidationError("Cursor de paginação inválido.")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.CreatedAt.IsZero() {
		return nil, apperror.NewValidationError("Cursor de paginação inválido.")
	}
	return &c, nil
}

// Parse monta a Page a partir dos parâmetros de query "limit" e "cursor".
func Parse(limitParam, cursorParam string, limits Limits) (Page, error) {
	limit := limits.Default
	if limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n <= 0 {
			return Page{}, apperror.NewValidationError(fmt.Sprintf("Parâmetro limit inválido: '%s'.", limitParam))
		}
		limit = n
	}
	if limits.Max > 0 && limit > limits.Max {
		limit = limits.Max
	}
	if limit <= 0 {
		limit = 20
	}

	after, err := Decode(cursorParam)
	if err != nil {
		return Page{}, err
	}
	return Page{Limit: limit, After: after}, nil
}

// Build corta a lista buscada com Limit+1 linhas e calcula o próximo cursor.
// key extrai a chave de ordenação de cada item.
func Build[T any](rows []T, page Page, key func(T) Cursor) Result[T] {
	if len(rows) <= page.Limit {
		if rows == nil {
			rows = []T{}
		}
		return Result[T]{Items: rows}
	}
	items := rows[:page.Limit]
	return Result[T]{Items: items, NextCursor: key(items[len(items)-1]).Encode()}
}

// Where devolve o trecho SQL de keyset e os argumentos, com placeholders a partir de argPos.
// Sem cursor devolve "TRUE".
func (p Page) Where(createdCol, idCol string, argPos int) (string, []interface{}) {
	if p.After == nil {
		return "TRUE", nil
	}
	clause := fmt.Sprintf("(%s, %s) < ($%d, $%d)", createdCol, idCol, argPos, argPos+1)
	return clause, []interface{}{p.After.CreatedAt, p.After.ID}
}

// FetchLimit é o LIMIT usado na query (uma linha extra detecta a próxima página).
func (p Page) FetchLimit() int {
	return p.Limit + 1
}
