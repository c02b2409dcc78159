// Package api is a thin client for the session server's JSON API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"xiangqi/internal/client/display"
	"xiangqi/internal/core"
)

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Long polls hold the request for up to 25s
			Timeout: 35 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

// StatusError is returned for 4xx and 5xx responses
type StatusError struct {
	Status   int
	Response core.ErrorResponse
}

func (e *StatusError) Error() string {
	if e.Response.Code != "" {
		return fmt.Sprintf("request failed with status %d (%s)", e.Status, e.Response.Code)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	url := c.BaseURL + path

	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonData)
		bodyStr = string(jsonData)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.Out, "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if bodyStr != "" {
		fmt.Fprintf(c.Out, "%s%s%s\n", display.Blue, bodyStr, display.Reset)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.Out, "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.Out, "%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if c.Verbose && len(respBody) > 0 {
		var pretty any
		if err := json.Unmarshal(respBody, &pretty); err == nil {
			fmt.Fprintf(c.Out, "%sResponse Body:%s\n", display.Cyan, display.Reset)
			display.PrettyPrintJSON(c.Out, pretty)
		} else {
			fmt.Fprintf(c.Out, "%sResponse:%s\n%s\n", display.Cyan, display.Reset, string(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &statusErr.Response); err == nil && !c.Verbose {
			fmt.Fprintf(c.Out, "%sError: %s%s\n", display.Red, statusErr.Response.Error, display.Reset)
			if statusErr.Response.Details != "" {
				fmt.Fprintf(c.Out, "%sDetails: %s%s\n", display.Red, statusErr.Response.Details, display.Reset)
			}
		}
		return statusErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			fmt.Fprintf(c.Out, "%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			return err
		}
	}

	return nil
}

// API Methods

func (c *Client) Health() (*core.HealthResponse, error) {
	var resp core.HealthResponse
	err := c.doRequest("GET", "/api/v1/health", nil, &resp)
	return &resp, err
}

func (c *Client) CreateSession(req *core.CreateSessionRequest) (*core.CreateSessionResponse, error) {
	var resp core.CreateSessionResponse
	err := c.doRequest("POST", "/api/v1/sessions", req, &resp)
	return &resp, err
}

func (c *Client) GetSession(sessionID string) (*core.SessionResponse, error) {
	var resp core.SessionResponse
	err := c.doRequest("GET", "/api/v1/sessions/"+sessionID, nil, &resp)
	return &resp, err
}

// PollSession waits until the session moves past version
func (c *Client) PollSession(sessionID string, version uint64) (*core.SessionResponse, error) {
	var resp core.SessionResponse
	path := fmt.Sprintf("/api/v1/sessions/%s?wait=true&version=%d", sessionID, version)
	err := c.doRequest("GET", path, nil, &resp)
	return &resp, err
}

func (c *Client) GetBoard(sessionID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest("GET", "/api/v1/sessions/"+sessionID+"/board", nil, &resp)
	return &resp, err
}

func (c *Client) Tap(sessionID string, col, row int) (*core.ActionResponse, error) {
	req := &core.TapRequest{Col: &col, Row: &row}
	var resp core.ActionResponse
	err := c.doRequest("POST", "/api/v1/sessions/"+sessionID+"/taps", req, &resp)
	return &resp, err
}

func (c *Client) Restart(sessionID string) (*core.ActionResponse, error) {
	var resp core.ActionResponse
	err := c.doRequest("POST", "/api/v1/sessions/"+sessionID+"/restart", nil, &resp)
	return &resp, err
}

func (c *Client) Retract(sessionID string) (*core.ActionResponse, error) {
	var resp core.ActionResponse
	err := c.doRequest("POST", "/api/v1/sessions/"+sessionID+"/retract", nil, &resp)
	return &resp, err
}

func (c *Client) DeleteSession(sessionID string) error {
	return c.doRequest("DELETE", "/api/v1/sessions/"+sessionID, nil, nil)
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(method, path string, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}
	return c.doRequest(method, path, bodyData, nil)
}
