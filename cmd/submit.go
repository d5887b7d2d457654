package main

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"

	"github.com/okian/compintel/internal/domain/model"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultSubmitTimeout = 10 * time.Minute
	clientRetryMax       = 3
)

var errRunFailed = errors.New("run failed")

type submitFlags struct {
	url       string
	requestID string
	wait      bool
	poll      time.Duration
	timeout   time.Duration
	run       runFlags
}

var submitOpts submitFlags

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a run to a running service and optionally wait for its report",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitOpts.url, "url", "http://localhost:9080", "base URL of the service")
	f.StringVar(&submitOpts.requestID, "request-id", "", "idempotency key for the submission")
	f.BoolVar(&submitOpts.wait, "wait", false, "poll until the run finishes and print its report")
	f.DurationVar(&submitOpts.poll, "poll", defaultPollInterval, "poll interval while waiting")
	f.DurationVar(&submitOpts.timeout, "timeout", defaultSubmitTimeout, "overall timeout")
	f.StringSliceVar(&submitOpts.run.competitors, "competitor", nil, "competitor to watch (repeatable)")
	f.StringSliceVar(&submitOpts.run.regions, "region", nil, "region to watch (repeatable)")
	f.IntVar(&submitOpts.run.articles, "articles", 0, "max articles per competitor")
	f.StringVar(&submitOpts.run.focus, "focus", "", "recommendation focus")
}

// runsClient talks to the runs API.
type runsClient struct {
	base string
	http *http.Client
}

func newRunsClient(base string) *runsClient {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = clientRetryMax
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &runsClient{base: strings.TrimRight(base, "/"), http: rc.StandardClient()}
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), submitOpts.timeout)
	defer cancel()

	c := newRunsClient(submitOpts.url)
	id, dup, err := c.submit(ctx, submitOpts.requestID, submitOpts.run.request())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dup {
		fmt.Fprintf(out, "duplicate request, run %s\n", id)
	} else {
		fmt.Fprintf(out, "accepted run %s\n", id)
	}
	if !submitOpts.wait {
		return nil
	}

	if err := c.wait(ctx, id, submitOpts.poll); err != nil {
		return err
	}
	text, err := c.report(ctx, id)
	if err != nil {
		return err
	}
	_, err = out.Write(text)
	return err
}

func (c *runsClient) submit(ctx context.Context, requestID string, req model.Request) (string, bool, error) {
	body, err := json.Marshal(struct {
		RequestID string `json:"request_id,omitempty"`
		model.Request
	}{requestID, req})
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/runs", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	data, status, err := c.do(httpReq)
	if err != nil {
		return "", false, err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return "", false, fmt.Errorf("submit: status %d: %s", status, strings.TrimSpace(string(data)))
	}
	var resp struct {
		RunID     string `json:"run_id"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, fmt.Errorf("submit: decode response: %w", err)
	}
	return resp.RunID, resp.Duplicate, nil
}

// wait polls the run until it succeeds or fails.
func (c *runsClient) wait(ctx context.Context, id string, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		run, err := c.get(ctx, id)
		if err != nil {
			return err
		}
		switch run.Status {
		case model.RunSucceeded:
			return nil
		case model.RunFailed:
			return fmt.Errorf("%w: %s", errRunFailed, run.Error)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *runsClient) get(ctx context.Context, id string) (model.Run, error) {
	data, err := c.getOK(ctx, "/runs/"+id)
	if err != nil {
		return model.Run{}, err
	}
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, fmt.Errorf("get run: decode: %w", err)
	}
	return run, nil
}

func (c *runsClient) report(ctx context.Context, id string) ([]byte, error) {
	return c.getOK(ctx, "/runs/"+id+"/report")
}

func (c *runsClient) getOK(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	data, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func (c *runsClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}
