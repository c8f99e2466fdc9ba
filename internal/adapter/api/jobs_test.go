package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyBody = `[
  {"id": 3, "file": "http://api.test/media/documents/2025/03/new.pdf", "created_at": "2025-03-02T10:00:00.123456Z", "insight": null},
  {"id": 2, "file": "http://api.test/media/documents/2025/03/cv.pdf", "created_at": "2025-03-01T10:00:00Z",
   "insight": {"id": 2, "status": "SUCCESS", "summary": "## Strong candidate", "top_words": null}},
  {"id": "1", "file": "/media/documents/2025/02/old.pdf", "created_at": "2025-02-01T10:00:00Z",
   "insight": {"id": 1, "status": "FAILED", "summary": null, "top_words": {"words": ["go", "redis"]}}}
]`

func TestListJobs_DecodesHistory(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, historyBody)
	})

	jobs, err := c.Jobs(bearer("tok")).ListJobs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, jobs, 3)

	assert.Equal(t, "3", jobs[0].ID)
	assert.Equal(t, domain.JobPending, jobs[0].Status)
	assert.Equal(t, "new.pdf", jobs[0].FileName)

	assert.Equal(t, domain.JobSuccess, jobs[1].Status)
	assert.Equal(t, "## Strong candidate", jobs[1].Result)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), jobs[1].SubmittedAt)

	assert.Equal(t, "1", jobs[2].ID)
	assert.Equal(t, domain.JobFailed, jobs[2].Status)
	assert.Equal(t, []string{"go", "redis"}, jobs[2].Failure)
	assert.True(t, jobs[2].HasFailure)
	assert.False(t, jobs[1].HasFailure)
	assert.Equal(t, "old.pdf", jobs[2].FileName)
}

func TestListJobs_FailedWithoutWords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
  {"id": 2, "file": "scan.pdf", "created_at": "2025-03-02T10:00:00Z",
   "insight": {"status": "FAILED", "summary": null, "top_words": {"words": []}}},
  {"id": 4, "file": "corrupt.pdf", "created_at": "2025-03-02T09:00:00Z",
   "insight": {"status": "FAILED", "summary": null, "top_words": null}},
  {"id": 1, "file": "cv.pdf", "created_at": "2025-03-01T10:00:00Z",
   "insight": {"status": "SUCCESS", "summary": "ok", "top_words": null}}
]`)
	})

	jobs, err := c.Jobs(bearer("tok")).ListJobs(context.Background())

	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, domain.JobFailed, jobs[0].Status)
	assert.True(t, jobs[0].HasFailure)
	assert.Empty(t, jobs[0].Failure)
	assert.False(t, jobs[1].HasFailure, "a null artifact stays absent")
}

func TestListJobs_BodyTooLarge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[")
		_, _ = io.WriteString(w, strings.Repeat(`{"id": 1, "file": "a.pdf", "insight": null},`, maxHistoryBytes/40))
		_, _ = io.WriteString(w, `{"id": 2, "file": "b.pdf", "insight": null}]`)
	})

	_, err := c.Jobs(bearer("tok")).ListJobs(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchMalformedResponse, fetchErr.Reason)
}

func TestListJobs_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.FetchReason
	}{
		{"server error", http.StatusInternalServerError, ``, domain.FetchNetwork},
		{"not json", http.StatusOK, `{"detail":`, domain.FetchMalformedResponse},
		{"unknown status", http.StatusOK, `[{"id":1,"file":"a.pdf","insight":{"status":"RUNNING"}}]`, domain.FetchMalformedResponse},
		{"missing id", http.StatusOK, `[{"file":"a.pdf","insight":null}]`, domain.FetchMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Jobs(bearer("tok")).ListJobs(context.Background())

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.want, fetchErr.Reason)
		})
	}
}

func TestListJobs_UnauthenticatedFromTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})
	reject := func(http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, domain.ErrUnauthenticated
		})
	}

	_, err := c.Jobs(reject).ListJobs(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchUnauthenticated, fetchErr.Reason)
	assert.True(t, domain.IsUnauthenticated(err))
}

func TestListJobs_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	metrics := &recordingMetrics{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(2, time.Hour), WithMetrics(metrics))
	jobs := c.Jobs(bearer("tok"))

	for i := 0; i < 2; i++ {
		_, err := jobs.ListJobs(context.Background())
		require.Error(t, err)
	}

	_, err := jobs.ListJobs(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchNetwork, fetchErr.Reason)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, metrics.states, "open")
}

func TestUploadDocument_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload-resume/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":42,"file":"http://api.test/media/documents/2025/03/cv_x1.pdf","created_at":"2025-03-01T12:00:00Z","insight":null}`)
	})

	job, err := c.Jobs(bearer("tok")).UploadDocument(context.Background(), &domain.Upload{Name: "cv.pdf", Content: strings.NewReader("%PDF-1.4")})

	require.NoError(t, err)
	assert.Equal(t, "42", job.ID)
	assert.Equal(t, "cv_x1.pdf", job.FileName)
	assert.Equal(t, domain.JobPending, job.Status)
}

func TestUploadDocument_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       domain.SubmitReason
		wantDetail string
	}{
		{"detail", http.StatusBadRequest, `{"detail":"Unsupported media type."}`, domain.SubmitServerRejected, "Unsupported media type."},
		{"field error", http.StatusBadRequest, `{"file":["The submitted data was not a file."]}`, domain.SubmitServerRejected, "The submitted data was not a file."},
		{"no body", http.StatusRequestEntityTooLarge, ``, domain.SubmitServerRejected, "request failed with status 413"},
		{"created without id", http.StatusCreated, `{"file":"x.pdf"}`, domain.SubmitServerRejected, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Jobs(bearer("tok")).UploadDocument(context.Background(), &domain.Upload{Name: "cv.pdf", Content: strings.NewReader("x")})

			var submitErr *domain.SubmitError
			require.ErrorAs(t, err, &submitErr)
			assert.Equal(t, tt.want, submitErr.Reason)
			assert.Equal(t, tt.wantDetail, submitErr.Detail)
		})
	}
}

func TestUploadDocument_NoFile(t *testing.T) {
	c, err := NewClient("http://api.test/")
	require.NoError(t, err)

	_, err = c.Jobs(nil).UploadDocument(context.Background(), &domain.Upload{})

	var submitErr *domain.SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, domain.SubmitNoFileSelected, submitErr.Reason)
}

func TestFlexibleID(t *testing.T) {
	var doc documentPayload
	require.NoError(t, doc.ID.UnmarshalJSON([]byte(`17`)))
	assert.Equal(t, flexibleID("17"), doc.ID)

	require.NoError(t, doc.ID.UnmarshalJSON([]byte(`"abc"`)))
	assert.Equal(t, flexibleID("abc"), doc.ID)

	assert.Error(t, doc.ID.UnmarshalJSON([]byte(`1.5`)))
	assert.Error(t, doc.ID.UnmarshalJSON([]byte(`true`)))
}
