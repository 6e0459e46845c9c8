// Package respond concentra a escrita de respostas JSON e a leitura de payloads
// compartilhadas pelos handlers da API.
package respond

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/middleware"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/pkg/validation"
)

// maxBody é o maior payload JSON aceito.
const maxBody = 1 << 20

// ServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func ServiceResponse(log logger.Logger, w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		if data == nil {
			w.WriteHeader(successStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
			log.Error("Falha ao codificar JSON de resposta", jsonErr)
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// DecodeJSON lê o corpo JSON em dst e aplica as regras `validate` da struct.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return validation.Struct(dst)
}

// Actor devolve o ator autenticado da requisição.
func Actor(r *http.Request) (domain.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return domain.Actor{}, apperror.NewUnauthorizedError("Autorização necessária.")
	}
	return actor, nil
}

// Page lê os parâmetros "limit" e "cursor" da query.
func Page(r *http.Request, limits pagination.Limits) (pagination.Page, error) {
	q := r.URL.Query()
	return pagination.Parse(q.Get("limit"), q.Get("cursor"), limits)
}
