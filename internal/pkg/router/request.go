package router

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/kourier/otc/internal/pkg/goerror"
)

// Request wraps http.Request with decoding helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a path parameter by name.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetParamInt64 reads a path parameter as int64.
func (r *Request) GetParamInt64(key string) (int64, error) {
	value, err := strconv.ParseInt(r.GetParam(key), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat("param must integer value")
	}
	return value, nil
}

// GetQuery reads a trimmed query value.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// GetQueryBool reads a query value as bool; missing or malformed is false.
func (r *Request) GetQueryBool(key string) bool {
	b, _ := strconv.ParseBool(r.GetQuery(key))
	return b
}

// DecodeBody decodes the JSON body into dst, rejecting unknown fields and
// trailing content.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// IdempotencyKey reads the conventional header clients use to de-duplicate
// retried mutations.
func (r *Request) IdempotencyKey() string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}
