package cross

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL = "http://localhost:5000/generate_children"

	// GenericErrorMessage is shown when the service did not explain the failure.
	GenericErrorMessage = "An error occurred while connecting to the server."
)

// RemoteError is a non-2xx answer from the cross service.
type RemoteError struct {
	Status  int
	Message string // "error" field of the payload, may be empty
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cross service %d", e.Status)
	}
	return fmt.Sprintf("cross service %d: %s", e.Status, e.Message)
}

// UserMessage picks the text shown to the user for a failed submission.
func UserMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && strings.TrimSpace(re.Message) != "" {
		return re.Message
	}
	return GenericErrorMessage
}

type Client struct {
	url   string
	httpc *http.Client
}

// New builds a client for the endpoint at url. timeout <= 0 means the
// request waits for as long as the service takes.
func New(url string, timeout time.Duration) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{url: url, httpc: hc}
}

func (c *Client) URL() string { return c.url }

// Generate posts the canonical request and decodes the results.
func (c *Client) Generate(ctx context.Context, in Request) (Response, error) {
	if in.Parents == nil {
		in.Parents = [][]string{}
	}
	if in.Targets == nil {
		in.Targets = [][]string{}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ep ErrorPayload
		_ = json.Unmarshal(body, &ep)
		return Response{}, &RemoteError{Status: resp.StatusCode, Message: ep.Error}
	}

	var out struct {
		Results *[]Result `json:"results"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Results == nil {
		return Response{}, errors.New("decode response: results missing")
	}
	return Response{Results: *out.Results}, nil
}
