package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/resumeinsider/internal/domain"
)

// JobsClient calls the privileged document endpoints.
type JobsClient struct {
	http    *http.Client
	client  *Client
	breaker circuitbreaker.CircuitBreaker[any]
}

var _ domain.JobAPI = (*JobsClient)(nil)

// Jobs returns a client for the privileged endpoints. wrap decorates the
// transport, typically with the session's bearer RoundTripper.
func (c *Client) Jobs(wrap func(http.RoundTripper) http.RoundTripper) *JobsClient {
	rt := c.transport
	if wrap != nil {
		rt = wrap(rt)
	}
	return &JobsClient{
		http:    &http.Client{Transport: rt, Timeout: c.timeout},
		client:  c,
		breaker: c.breaker,
	}
}

// ListJobs fetches the full history. Calls are refused with FetchError{network}
// while the circuit breaker is open.
func (j *JobsClient) ListJobs(ctx context.Context) ([]domain.Job, error) {
	if !j.breaker.TryAcquirePermit() {
		return nil, &domain.FetchError{Reason: domain.FetchNetwork, Err: circuitbreaker.ErrOpen}
	}

	jobs, err := j.listJobs(ctx)

	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) && fetchErr.Reason == domain.FetchNetwork {
		j.breaker.RecordError(err)
	} else {
		j.breaker.RecordSuccess()
	}
	return jobs, err
}

func (j *JobsClient) listJobs(ctx context.Context) ([]domain.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.client.endpoint(pathHistory), nil)
	if err != nil {
		return nil, &domain.FetchError{Reason: domain.FetchNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.http.Do(req)
	if err != nil {
		if domain.IsUnauthenticated(err) {
			return nil, &domain.FetchError{Reason: domain.FetchUnauthenticated, Err: domain.ErrUnauthenticated}
		}
		return nil, &domain.FetchError{Reason: domain.FetchNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{Reason: domain.FetchNetwork, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var documents []documentPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxHistoryBytes)).Decode(&documents); err != nil {
		return nil, &domain.FetchError{Reason: domain.FetchMalformedResponse, Err: err}
	}

	jobs := make([]domain.Job, 0, len(documents))
	for _, doc := range documents {
		job, err := doc.toJob()
		if err != nil {
			return nil, &domain.FetchError{Reason: domain.FetchMalformedResponse, Err: err}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// UploadDocument posts the upload as multipart field "file".
func (j *JobsClient) UploadDocument(ctx context.Context, upload *domain.Upload) (domain.Job, error) {
	if upload == nil || upload.Name == "" || upload.Content == nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNoFileSelected}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", upload.Name)
	if err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: fmt.Errorf("read upload: %w", err)}
	}
	if err := form.Close(); err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.client.endpoint(pathUpload), &body)
	if err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := j.http.Do(req)
	if err != nil {
		if domain.IsUnauthenticated(err) {
			return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitUnauthenticated, Err: domain.ErrUnauthenticated}
		}
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Job{}, &domain.SubmitError{
			Reason: domain.SubmitServerRejected,
			Detail: rejectionDetail(raw, resp.StatusCode),
		}
	}

	var doc documentPayload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitServerRejected, Err: fmt.Errorf("decode upload response: %w", err)}
	}
	job, err := doc.toJob()
	if err != nil {
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitServerRejected, Err: err}
	}
	if job.FileName == "" {
		job.FileName = upload.Name
	}
	return job, nil
}

// rejectionDetail picks the message to show for a failed upload: the "detail"
// field, else the first field error, else the status text.
func rejectionDetail(body []byte, status int) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	if fields, err := fieldErrors(body); err == nil {
		if msgs := fields["file"]; len(msgs) > 0 {
			return msgs[0]
		}
		for _, msgs := range fields {
			if len(msgs) > 0 {
				return msgs[0]
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
