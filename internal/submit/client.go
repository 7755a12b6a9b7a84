// Package submit posts signed transactions to a cardano-submit-api endpoint.
package submit

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Klingon-tech/txpump/internal/fault"
	klog "github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Path is the submit-api route for raw CBOR transactions.
const Path = "/api/submit/tx"

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 30 * time.Second

// Submitter delivers serialized transactions to the ledger.
type Submitter interface {
	Submit(ctx context.Context, raw []byte) (types.Hash, error)
}

// Options configure the HTTP transport.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Client submits transactions over HTTP.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
}

// New creates a client posting to baseURL + Path.
func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
		if opts.InsecureSkipVerify {
			hc.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	return &Client{
		url:     strings.TrimRight(baseURL, "/") + Path,
		http:    hc,
		timeout: timeout,
	}
}

// URL returns the full submission URL.
func (c *Client) URL() string {
	return c.url
}

// Submit posts raw with Content-Type application/cbor. Any transport
// failure or non-2xx status is a SubmissionError. On success the
// transaction id echoed by the endpoint is returned, or the zero hash if
// the body does not carry one.
func (c *Client) Submit(ctx context.Context, raw []byte) (types.Hash, error) {
	const op = "submit"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return types.Hash{}, fault.New(fault.SubmissionError, op, err)
	}
	req.Header.Set("Content-Type", "application/cbor")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return types.Hash{}, fault.New(fault.SubmissionError, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return types.Hash{}, fault.New(fault.SubmissionError, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Hash{}, fault.Newf(fault.SubmissionError, op, "status %d: %s", resp.StatusCode, summarize(body))
	}

	var id string
	var echoed types.Hash
	if json.Unmarshal(body, &id) == nil {
		if h, err := types.HexToHash(id); err == nil {
			echoed = h
		}
	}
	klog.Submit.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("Submitted transaction")
	return echoed, nil
}

func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
