// Package seedrpc implements the JSON-RPC 1.1 protocol spoken by the SEED
// family of web services (app service, ProbModelSEED, Workspace).
package seedrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds a single RPC round trip. Reconstruction and gap fill
// jobs run asynchronously on the server so individual calls stay short, but
// a few synchronous methods (get on a large model) can be slow.
const DefaultTimeout = 30 * time.Minute

// Client calls methods on one SEED service endpoint.
type Client struct {
	// URL is the service endpoint.
	URL string
	// Name is the service name prefixed to every method (e.g. "Workspace").
	Name string
	// Token is the authentication token sent in the AUTHORIZATION header.
	Token string
	// Username is the user ID extracted from the token.
	Username string

	// HTTPClient performs requests; tests may replace it with a mock
	// transport. When nil, a shared client with DefaultTimeout is used.
	HTTPClient *http.Client

	// Logger receives debug output for each call. When nil, logging is off.
	Logger *log.Logger
}

var defaultHTTPClient = &http.Client{Timeout: DefaultTimeout}

// NewClient creates a client for a service endpoint. token may be empty; use
// SetToken later once one is available.
func NewClient(url, name, token string) *Client {
	c := &Client{URL: url, Name: name}
	c.SetToken(token)
	return c
}

// SetToken installs the authentication token and extracts the user ID from
// its leading "un=<user>|" field.
func (c *Client) SetToken(token string) {
	c.Token = token
	c.Username = UsernameFromToken(token)
}

// UsernameFromToken extracts the user ID from a SEED authentication token.
func UsernameFromToken(token string) string {
	if token == "" {
		return ""
	}
	first := strings.SplitN(token, "|", 2)[0]
	return strings.TrimPrefix(first, "un=")
}

type rpcRequest struct {
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Version string      `json:"version"`
	ID      string      `json:"id"`
}

type rpcError struct {
	Name    string          `json:"name"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type rpcResponse struct {
	Result []json.RawMessage `json:"result"`
	Error  *rpcError         `json:"error"`
}

// Call invokes a method on the service and returns the first element of the
// result array. params is marshaled as the single element of the params
// array unless it is a slice, which is sent as is.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if c.Token == "" {
		return nil, &AuthenticationError{Message: "no authentication token, log in first"}
	}

	reqParams := params
	switch params.(type) {
	case []interface{}, nil:
		// Positional parameter lists are sent unchanged.
	default:
		reqParams = []interface{}{params}
	}
	body, err := json.Marshal(rpcRequest{
		Method:  c.Name + "." + method,
		Params:  reqParams,
		Version: "1.1",
		ID:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request for %s.%s: %w", c.Name, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("AUTHORIZATION", c.Token)

	if c.Logger != nil {
		c.Logger.Debug("calling service method", "service", c.Name, "method", method)
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: read response: %w", c.Name, method, err)
	}

	if resp.StatusCode == http.StatusInternalServerError {
		return nil, c.serverError(resp, data)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s.%s returned status %d: %s", c.Name, method, resp.StatusCode, string(data))
	}

	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s.%s: decode response: %w", c.Name, method, err)
	}
	if out.Error != nil {
		return nil, serverErrorFromRPC(out.Error)
	}
	if len(out.Result) == 0 {
		return nil, fmt.Errorf("%s.%s returned an empty result", c.Name, method)
	}
	return out.Result[0], nil
}

func (c *Client) serverError(resp *http.Response, data []byte) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var out rpcResponse
		if err := json.Unmarshal(data, &out); err == nil && out.Error != nil {
			return serverErrorFromRPC(out.Error)
		}
	}
	return NewServerError(string(data))
}

func serverErrorFromRPC(e *rpcError) error {
	if e.Message != "" {
		se := NewServerError(e.Message)
		if e.Name != "" {
			se.Name = e.Name
		}
		if e.Code != 0 {
			se.Code = e.Code
		}
		return se
	}
	// Some servers put the text in data or error instead of message.
	for _, raw := range []json.RawMessage{e.Data, e.Error} {
		var text string
		if len(raw) > 0 && json.Unmarshal(raw, &text) == nil && text != "" {
			return NewServerError(text)
		}
	}
	return NewServerError("")
}
