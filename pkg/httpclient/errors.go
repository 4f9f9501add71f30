package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DownstreamErrorResponse covers the two error shapes gateways commonly
// return: the storefront envelope {"error":{code,message}} and a Square-style
// {"errors":[{code,detail}]} list.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Errors []struct {
		Code     string `json:"code"`
		Detail   string `json:"detail"`
		Category string `json:"category"`
	} `json:"errors"`
}

func (d DownstreamErrorResponse) first() (code, message string, ok bool) {
	if d.Error != nil {
		return d.Error.Code, d.Error.Message, true
	}
	if len(d.Errors) > 0 {
		return d.Errors[0].Code, d.Errors[0].Detail, true
	}
	return "", "", false
}

// ParseResponseError consumes and closes resp.Body and translates a non-2xx
// response into an error. Only call it for non-2xx responses.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil {
		if code, message, ok := downstream.first(); ok {
			return mapDownstreamError(resp.StatusCode, code, message, service)
		}
	}

	return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, string(body))
}

// mapDownstreamError keeps payment declines verbatim so the shopper sees the
// gateway's own reason.
func mapDownstreamError(status int, code, message, service string) error {
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch {
	case status == http.StatusPaymentRequired, status == http.StatusUnprocessableEntity:
		return apperrors.PaymentFailed(message)
	case status == http.StatusNotFound:
		return apperrors.NotFound(service, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusServiceUnavailable, status == http.StatusTooManyRequests:
		return apperrors.ServiceUnavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", service, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}

// IsClientError reports whether status is 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
