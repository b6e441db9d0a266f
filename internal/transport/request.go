package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/logging"
)

// request describes one call to the management service.
type request struct {
	operation string
	method    string
	segments  []string
	query     url.Values
	body      any
}

// URL builds the absolute URL of the request. Each segment is escaped on
// its own so identifiers and model names cannot introduce path separators.
func (c *Client) URL(segments []string, query url.Values) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// call performs r and decodes a successful response into out when out is
// not nil.
func (c *Client) call(ctx context.Context, r request, out any) error {
	var body io.Reader
	switch v := r.body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return errors.WrapParse("json", r.operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.URL(r.segments, r.query), body)
	if err != nil {
		return errors.WrapAPI(r.operation, 0, err)
	}

	resp, err := c.DoWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.WrapAPI(r.operation, 0, err)
	}
	return DecodeResponse(ctx, r.operation, resp, out)
}

// errorBody is the error envelope returned by the service.
type errorBody struct {
	Message      string `json:"message"`
	MessageUpper string `json:"Message"`
}

// DecodeResponse decodes a JSON response into target. Any non-2xx status
// becomes an *errors.APIError carrying the service's message.
func DecodeResponse(ctx context.Context, operation string, resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.Status),
		}
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", operation, err)
	}
	return nil
}

func errorMessage(body []byte, status string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.MessageUpper != "" {
			return eb.MessageUpper
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}
