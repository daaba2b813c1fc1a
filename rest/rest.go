// Package rest binds the five conventional CRUDL operations (list, get,
// create, update, delete) for a named resource onto a router.Router as
// plain regex endpoints, the way spec.md §4.6's "REST resource endpoint"
// is realized here: sugar over router.AddCapturing rather than a distinct
// Endpoint variant, so the dispatch algorithm never needs to know REST
// exists. Request/response bodies are JSON, validated with
// go-playground/validator/v10, wrapped in a uniform
// {"error": {...}} / {"data": ...} envelope.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
)

// validate caches struct reflection info across every bound resource, the
// same "construct once" pattern the validator docs (and the rest of this
// corpus) use.
var validate = validator.New()

// Envelope is the uniform response shape every REST endpoint answers
// with: error is always present (code 0 on success), data only on
// success.
type Envelope struct {
	Error *ErrorBody `json:"error"`
	Data  any        `json:"data,omitempty"`
}

// ErrorBody is the envelope's error shape. Code is 0 on success; HTTP
// status alone distinguishes 200/201 from 4xx/5xx.
type ErrorBody struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// Numeric error codes for the failure modes this package itself detects.
// Handler-specific codes are supplied via NewStatusError.
const (
	CodeInternal      uint32 = 1
	CodeMalformedJSON uint32 = 2
	CodeValidation    uint32 = 3
)

// Handlers is the set of operations a resource supports. A nil field
// means that operation is not bound at all (e.g. a read-only resource
// leaves Create/Update/Delete nil).
type Handlers[TCreate, TUpdate, TItem any] struct {
	List   func(req *httpx.Request) ([]TItem, error)
	Get    func(id string, req *httpx.Request) (TItem, error)
	Create func(body TCreate, req *httpx.Request) (TItem, error)
	Update func(id string, body TUpdate, req *httpx.Request) (TItem, error)
	Delete func(id string, req *httpx.Request) error
}

// Bind registers h's non-nil operations under /name and /name/{id} on r.
func Bind[TCreate, TUpdate, TItem any](r *router.Router, name string, h Handlers[TCreate, TUpdate, TItem]) error {
	base := "^/" + regexp.QuoteMeta(name)
	item := base + `/([^/]+)$`
	collection := base + "$"

	if h.List != nil {
		if err := r.AddCapturing(http.MethodGet, collection, func(req *httpx.Request, _ []string) *httpx.Response {
			items, err := h.List(req)
			if err != nil {
				return errorResponse(err)
			}
			return jsonResponse(http.StatusOK, items)
		}); err != nil {
			return err
		}
	}

	if h.Create != nil {
		if err := r.AddCapturing(http.MethodPost, collection, func(req *httpx.Request, _ []string) *httpx.Response {
			var body TCreate
			if err := decodeAndValidate(req, &body); err != nil {
				return errorResponse(err)
			}
			created, err := h.Create(body, req)
			if err != nil {
				return errorResponse(err)
			}
			return jsonResponse(http.StatusCreated, created)
		}); err != nil {
			return err
		}
	}

	if h.Get != nil {
		if err := r.AddCapturing(http.MethodGet, item, func(req *httpx.Request, captures []string) *httpx.Response {
			found, err := h.Get(captures[0], req)
			if err != nil {
				return errorResponse(err)
			}
			return jsonResponse(http.StatusOK, found)
		}); err != nil {
			return err
		}
	}

	if h.Update != nil {
		if err := r.AddCapturing(http.MethodPatch, item, func(req *httpx.Request, captures []string) *httpx.Response {
			var body TUpdate
			if err := decodeAndValidate(req, &body); err != nil {
				return errorResponse(err)
			}
			updated, err := h.Update(captures[0], body, req)
			if err != nil {
				return errorResponse(err)
			}
			return jsonResponse(http.StatusOK, updated)
		}); err != nil {
			return err
		}
	}

	if h.Delete != nil {
		if err := r.AddCapturing(http.MethodDelete, item, func(req *httpx.Request, captures []string) *httpx.Response {
			if err := h.Delete(captures[0], req); err != nil {
				return errorResponse(err)
			}
			resp := httpx.NewResponse(http.StatusNoContent)
			resp.Body = &httpx.EmptyBody{}
			return resp
		}); err != nil {
			return err
		}
	}

	return nil
}

func decodeAndValidate(req *httpx.Request, dst any) error {
	raw, err := httpx.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedJSON, err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func jsonResponse(status int, data any) *httpx.Response {
	buf, err := json.Marshal(Envelope{Error: &ErrorBody{}, Data: data})
	if err != nil {
		return errorResponse(err)
	}
	resp := httpx.NewResponse(status)
	resp.Body = &httpx.StringBody{Data: string(buf)}
	resp.Set("Content-Type", "application/json")
	return resp
}

func errorResponse(err error) *httpx.Response {
	var se *StatusError
	status, code, message := http.StatusInternalServerError, CodeInternal, "internal server error"
	switch {
	case errors.As(err, &se):
		status, code, message = se.Status, se.Code, se.Message
	case errors.Is(err, ErrMalformedJSON):
		status, code, message = http.StatusBadRequest, CodeMalformedJSON, err.Error()
	case errors.Is(err, ErrValidation):
		status, code, message = http.StatusUnprocessableEntity, CodeValidation, err.Error()
	}

	buf, _ := json.Marshal(Envelope{Error: &ErrorBody{Code: code, Message: message}})
	resp := httpx.NewResponse(status)
	resp.Body = &httpx.StringBody{Data: string(buf)}
	resp.Set("Content-Type", "application/json")
	return resp
}
