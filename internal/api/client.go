package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/rs/zerolog"
)

type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the job-management API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	schemas    *payloadSchemas
}

func NewClient(config ClientConfig) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	base := http.DefaultTransport
	if config.HTTPClient != nil && config.HTTPClient.Transport != nil {
		base = config.HTTPClient.Transport
	}
	httpClient := &http.Client{
		Transport: Chain(base,
			RequestID(),
			Auth(strings.TrimSpace(config.Token)),
			Trace(config.Logger),
		),
	}
	if config.HTTPClient != nil {
		httpClient.Jar = config.HTTPClient.Jar
		httpClient.CheckRedirect = config.HTTPClient.CheckRedirect
	}

	schemas, err := compilePayloadSchemas()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		timeout:    config.Timeout,
		httpClient: httpClient,
		schemas:    schemas,
	}, nil
}

// CreateJob streams form to POST /api/jobs. The upload itself is bounded only
// by ctx; large files may take longer than the read timeout.
func (c *Client) CreateJob(ctx context.Context, form Form, onProgress ProgressFunc) (domain.JobCreated, error) {
	const op = "create job"

	encoded, err := form.encode()
	if err != nil {
		return domain.JobCreated{}, fmt.Errorf("%s: %w", op, err)
	}
	body := &progressReader{
		reader:     encoded.body,
		total:      encoded.contentLength,
		onProgress: onProgress,
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs", body)
	if err != nil {
		_ = encoded.body.Close()
		return domain.JobCreated{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	request.ContentLength = encoded.contentLength
	request.Header.Set("Content-Type", encoded.contentType)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return domain.JobCreated{}, &TransportError{Op: op, Err: err}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return domain.JobCreated{}, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := string(raw)
		if strings.TrimSpace(message) == "" {
			message = DefaultRejectionMessage
		}
		return domain.JobCreated{}, &ServerRejection{StatusCode: response.StatusCode, Message: message}
	}

	if err := validatePayload(c.schemas.created, raw); err != nil {
		return domain.JobCreated{}, fmt.Errorf("%s: %w", op, err)
	}
	var created domain.JobCreated
	if err := json.Unmarshal(raw, &created); err != nil {
		return domain.JobCreated{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	return created, nil
}

type jobPayload struct {
	ID          string           `json:"id"`
	Status      domain.JobStatus `json:"status"`
	CurrentStep *string          `json:"current_step"`
	Percent     *float64         `json:"percent"`
	JobPath     *string          `json:"job_path"`
	Error       *string          `json:"error"`
	Client      string           `json:"client"`
	Title       string           `json:"title"`
	CreatedAt   string           `json:"created_at"`
}

func (p jobPayload) toDomain(fallbackID string) domain.Job {
	job := domain.Job{
		ID:          firstNonEmpty(p.ID, fallbackID),
		Status:      p.Status,
		CurrentStep: p.CurrentStep,
		Error:       p.Error,
		Client:      p.Client,
		Title:       p.Title,
		CreatedAt:   p.CreatedAt,
	}
	if p.Percent != nil {
		job.Percent = int(math.Round(*p.Percent))
	}
	if p.JobPath != nil {
		job.JobPath = *p.JobPath
	}
	return job
}

// GetJob fetches the current status snapshot of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	const op = "get job"

	if strings.TrimSpace(jobID) == "" {
		return domain.Job{}, ErrMissingJobID
	}
	raw, err := c.get(ctx, op, c.jobURL(jobID, ""))
	if err != nil {
		return domain.Job{}, err
	}
	if err := validatePayload(c.schemas.status, raw); err != nil {
		return domain.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	var payload jobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Job{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	return payload.toDomain(jobID), nil
}

// GetResults fetches the categorized output of a job.
func (c *Client) GetResults(ctx context.Context, jobID string) (domain.ResultSet, error) {
	const op = "get results"

	if strings.TrimSpace(jobID) == "" {
		return domain.ResultSet{}, ErrMissingJobID
	}
	raw, err := c.get(ctx, op, c.jobURL(jobID, "/results"))
	if err != nil {
		return domain.ResultSet{}, err
	}
	if err := validatePayload(c.schemas.results, raw); err != nil {
		return domain.ResultSet{}, fmt.Errorf("%s: %w", op, err)
	}
	var results domain.ResultSet
	if err := json.Unmarshal(raw, &results); err != nil {
		return domain.ResultSet{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	return results, nil
}

// GetLogs returns the tail of the job's log file.
func (c *Client) GetLogs(ctx context.Context, jobID string) ([]string, error) {
	const op = "get logs"

	if strings.TrimSpace(jobID) == "" {
		return nil, ErrMissingJobID
	}
	raw, err := c.get(ctx, op, c.jobURL(jobID, "/logs"))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	return payload.Lines, nil
}

// Health reports whether the job API answers its health check.
func (c *Client) Health(ctx context.Context) error {
	const op = "health"

	raw, err := c.get(ctx, op, c.baseURL+"/api/health")
	if err != nil {
		return err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	if payload.Status != "ok" {
		return fmt.Errorf("%s: unexpected status %q", op, payload.Status)
	}
	return nil
}

// DownloadURL builds the delivery archive link. It performs no request.
func (c *Client) DownloadURL(jobID string) string {
	return c.jobURL(jobID, "/download")
}

// Download copies the delivery archive into w and returns the file name the
// server suggested.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) (string, int64, error) {
	const op = "download"

	if strings.TrimSpace(jobID) == "" {
		return "", 0, ErrMissingJobID
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(jobID), nil)
	if err != nil {
		return "", 0, fmt.Errorf("%s: build request: %w", op, err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", 0, &TransportError{Op: op, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", 0, &StatusError{Op: op, StatusCode: response.StatusCode}
	}

	fileName := "delivery.zip"
	if _, params, err := mime.ParseMediaType(response.Header.Get("Content-Disposition")); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			fileName = name
		}
	}

	written, err := io.Copy(w, response.Body)
	if err != nil {
		return fileName, written, &TransportError{Op: op, Err: err}
	}
	return fileName, written, nil
}

func (c *Client) jobURL(jobID, suffix string) string {
	return c.baseURL + "/api/jobs/" + url.PathEscape(jobID) + suffix
}

func (c *Client) get(ctx context.Context, op, target string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("timeout: %w", err)}
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: response.StatusCode}
	}
	return raw, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
