package client

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

// envelope is the wire envelope every API response travels in. A
// success carries data and the server-side duration; a failure carries
// a structured error.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	Duration string          `json:"duration"`
	Error    *wireError      `json:"error"`
}

type wireError struct {
	Code       int            `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details"`
}

// decodeSuccess unwraps a success envelope into out. out may be nil for
// calls whose data is irrelevant. Decoding is tolerant: a body that is
// not an envelope at all is treated as a transport-level fault.
func decodeSuccess(resp *transport.Response, out any) error {
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return apierror.NewTransport("malformed response envelope", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apierror.NewTransport("malformed response data", err)
	}
	return nil
}

// decodeError maps an error response onto the taxonomy. A structured
// error envelope is preferred; anything else falls back to the HTTP
// status and a trimmed body excerpt.
func decodeError(resp *transport.Response) *apierror.Error {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err == nil && env.Error != nil {
		status := env.Error.StatusCode
		if status == 0 {
			status = resp.StatusCode
		}
		ae := apierror.New(env.Error.Code, env.Error.Message, status)
		if len(env.Error.Details) > 0 {
			ae = ae.WithDetails(env.Error.Details)
		}
		return ae
	}

	msg := strings.TrimSpace(string(resp.Body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return apierror.New(0, msg, resp.StatusCode)
}
