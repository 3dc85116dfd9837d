package client

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"network_controller/internal/domain/entity"
)

// httpStatusCode maps an HTTP failure onto a JSON-RPC code: 5xx is an internal error,
// anything else a generic server error.
func httpStatusCode(status int) int {
	if status >= http.StatusInternalServerError {
		return entity.RPCErrorCodeInternal
	}
	return entity.RPCErrorCodeServer
}

// newHTTPError keeps the response body as the message so callers can inspect provider
// specific payloads such as {"error":"countryBlocked"}.
func newHTTPError(status int, body []byte) *entity.RPCError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &entity.RPCError{
		Code:    httpStatusCode(status),
		Message: msg,
		Data:    map[string]any{"httpStatus": status},
	}
}

// normalizeError converts go-ethereum rpc errors into *entity.RPCError.
// Errors without a JSON-RPC or HTTP shape are returned unchanged.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var structured *entity.RPCError
	if errors.As(err, &structured) {
		return structured
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return newHTTPError(httpErr.StatusCode, httpErr.Body)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		out := &entity.RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			out.Data = dataErr.ErrorData()
		}
		return out
	}

	return err
}
