// Package transcode talks to the video transcode service: upload a recording, poll the job,
// download the result.
package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultBasePath     = "/visualizer"
	DefaultPollInterval = time.Second
	DefaultTimeout      = 30 * time.Minute
)

// Qualities are the presets the service accepts.
var Qualities = []string{"highest", "high", "medium", "social", "preview"}

var (
	ErrTimeout     = errors.New("transcode: job timed out")
	ErrJobNotFound = errors.New("transcode: job not found")
	ErrJobFailed   = errors.New("transcode: job failed")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
)

// JobStatus is the body of GET /api/status/:jobId.
type JobStatus struct {
	Status     Status         `json:"status"`
	Progress   float64        `json:"progress,omitempty"`
	Error      string         `json:"error,omitempty"`
	OutputFile string         `json:"outputFile,omitempty"`
	Thumbnail  string         `json:"thumbnail,omitempty"`
	Info       map[string]any `json:"info,omitempty"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}

type Health struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

// Result describes a finished job.
type Result struct {
	JobID       string
	OutputFile  string
	Thumbnail   string
	DownloadURL string
}

// Client is safe for sequential use; OnProgress is called from the calling goroutine.
type Client struct {
	Server       string
	BasePath     string
	HTTP         *http.Client
	PollInterval time.Duration
	Timeout      time.Duration
	// OnProgress receives overall progress 0..100.
	OnProgress func(percent float64)

	sleep func(ctx context.Context, d time.Duration) error
}

func New(server string) *Client {
	return &Client{
		Server:       strings.TrimRight(server, "/"),
		BasePath:     DefaultBasePath,
		HTTP:         &http.Client{},
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) path(p string) string {
	return c.BasePath + p
}

func (c *Client) url(p string) string {
	return c.Server + c.path(p)
}

// DownloadURL is the server-relative download path of an output file.
func (c *Client) DownloadURL(filename string) string {
	return c.path("/api/download/" + url.PathEscape(filename))
}

// AbsoluteURL prefixes a server-relative path with the server address.
func (c *Client) AbsoluteURL(p string) string {
	return c.Server + p
}

func (c *Client) progress(p float64) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}

// PollProgress maps server progress 0..100 into the 10..95 band between upload and finalization.
func PollProgress(server float64) float64 {
	if server < 0 {
		server = 0
	}
	if server > 100 {
		server = 100
	}
	return 10 + server*0.85
}

func (c *Client) getJSON(ctx context.Context, p string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(p), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("GET %s: %s", p, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("GET %s: %w", p, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	_, err := c.getJSON(ctx, "/health", &h)
	return h, err
}

// Info returns the server capability and preset metadata as sent.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	info := map[string]any{}
	_, err := c.getJSON(ctx, "/api/info", &info)
	return info, err
}

// Submit uploads the video as multipart "video" with a "quality" label and returns the job id.
// The body is streamed, the file is never held in memory.
func (c *Client) Submit(ctx context.Context, videoPath, quality string) (string, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	// stops the writer goroutine if the request ends early
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("video", filepath.Base(videoPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.WriteField("quality", quality)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/convert"), pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("upload: %s: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !sr.Success || sr.JobID == "" {
		msg := sr.Error
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("upload rejected: %s", msg)
	}
	return sr.JobID, nil
}

// Status fetches the job state. An unknown job yields StatusNotFound without an error.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	code, err := c.getJSON(ctx, "/api/status/"+url.PathEscape(jobID), &st)
	if code == http.StatusNotFound {
		return JobStatus{Status: StatusNotFound}, nil
	}
	return st, err
}

// Wait polls until the job completes or fails. Failed polls are retried after twice the
// interval; only Timeout ends the loop without a final state.
func (c *Client) Wait(ctx context.Context, jobID string) (JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	interval := c.PollInterval
	for {
		st, err := c.Status(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return st, c.deadline(ctx, jobID)
			}
			interval = 2 * c.PollInterval
			log.Printf("[!] Ошибка опроса задачи %s: %v, повтор через %v", jobID, err, interval)
		case st.Status == StatusCompleted:
			return st, nil
		case st.Status == StatusFailed:
			return st, fmt.Errorf("%w: %s", ErrJobFailed, st.Error)
		case st.Status == StatusNotFound:
			return st, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		default:
			interval = c.PollInterval
			c.progress(PollProgress(st.Progress))
		}

		if err := c.sleep(ctx, interval); err != nil {
			return st, c.deadline(ctx, jobID)
		}
	}
}

func (c *Client) deadline(ctx context.Context, jobID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrTimeout, jobID, c.Timeout)
	}
	return ctx.Err()
}

// Convert uploads, waits for the job and reports progress 0 → 10 → 10..95 → 100.
func (c *Client) Convert(ctx context.Context, videoPath, quality string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	c.progress(0)
	jobID, err := c.Submit(ctx, videoPath, quality)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: upload after %v", ErrTimeout, c.Timeout)
		}
		return Result{}, err
	}
	c.progress(10)

	st, err := c.Wait(ctx, jobID)
	if err != nil {
		return Result{JobID: jobID}, err
	}
	c.progress(100)
	return Result{
		JobID:       jobID,
		OutputFile:  st.OutputFile,
		Thumbnail:   st.Thumbnail,
		DownloadURL: c.DownloadURL(st.OutputFile),
	}, nil
}

// Download saves an output file to dst. cleanup asks the server to delete it afterwards.
func (c *Client) Download(ctx context.Context, filename, dst string, cleanup bool) error {
	u := c.url("/api/download/" + url.PathEscape(filename))
	if cleanup {
		u += "?cleanup=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", filename, resp.Status)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("download %s: %w", filename, err)
	}
	return out.Close()
}

// Cleanup deletes an output file on the server.
func (c *Client) Cleanup(ctx context.Context, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/cleanup/"+url.PathEscape(filename)), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || !body.Success {
		return fmt.Errorf("cleanup %s: %s", filename, resp.Status)
	}
	return nil
}
