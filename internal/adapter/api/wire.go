package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

// flexibleID accepts both numeric and string JSON ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type topWordsPayload struct {
	Words []string `json:"words"`
}

type insightPayload struct {
	Status   string           `json:"status"`
	Summary  *string          `json:"summary"`
	TopWords *topWordsPayload `json:"top_words"`
}

type documentPayload struct {
	ID        flexibleID      `json:"id"`
	File      string          `json:"file"`
	CreatedAt time.Time       `json:"created_at"`
	Insight   *insightPayload `json:"insight"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}

// toJob converts a document into a job. A document without an insight has not
// been picked up by a worker yet and counts as PENDING.
func (d documentPayload) toJob() (domain.Job, error) {
	if d.ID == "" {
		return domain.Job{}, fmt.Errorf("document without id")
	}

	job := domain.Job{
		ID:          string(d.ID),
		FileName:    fileName(d.File),
		FileURL:     d.File,
		Status:      domain.JobPending,
		SubmittedAt: d.CreatedAt,
	}
	if d.Insight == nil {
		return job, nil
	}

	status, err := domain.ParseJobStatus(d.Insight.Status)
	if err != nil {
		return domain.Job{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	job.Status = status
	if d.Insight.Summary != nil {
		job.Result = *d.Insight.Summary
	}
	if d.Insight.TopWords != nil {
		job.Failure = d.Insight.TopWords.Words
		job.HasFailure = true
	}
	return job, nil
}

// fileName returns the last path segment of a stored file URL.
func fileName(file string) string {
	if file == "" {
		return ""
	}
	if u, err := url.Parse(file); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(file)
}

// fieldErrors decodes a validation body of the form {"field": ["msg", ...]}.
// Single string values are accepted as one message.
func fieldErrors(body []byte) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	fields := make(map[string][]string, len(raw))
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[field] = []string{single}
		}
	}
	return fields, nil
}
