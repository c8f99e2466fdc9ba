package reconciler

import (
	"fmt"
	"time"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

// Indicator says which body a job view renders.
type Indicator string

const (
	IndicatorProcessing Indicator = "processing"
	IndicatorResult     Indicator = "result"
	IndicatorFailure    Indicator = "failure"
)

// Tone is the status badge colour.
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// View is the presentation of one job.
type View struct {
	ID          string           `json:"id"`
	FileName    string           `json:"file_name"`
	FileURL     string           `json:"file_url,omitempty"`
	Status      domain.JobStatus `json:"status"`
	Indicator   Indicator        `json:"indicator"`
	Tone        Tone             `json:"tone"`
	Summary     string           `json:"summary,omitempty"`
	TopWords    []string         `json:"top_words,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Optimistic  bool             `json:"optimistic,omitempty"`
}

// Present maps a job to its view. A terminal job without its payload is a
// *domain.DataContractError; it is never rendered blank.
func Present(job domain.Job) (View, error) {
	v := View{
		ID:          job.ID,
		FileName:    job.FileName,
		FileURL:     job.FileURL,
		Status:      job.Status,
		SubmittedAt: job.SubmittedAt,
		Optimistic:  job.Optimistic(),
	}

	switch job.Status {
	case domain.JobPending:
		v.Indicator, v.Tone = IndicatorProcessing, ToneWarning
	case domain.JobSuccess:
		if job.Result == "" {
			return View{}, missingPayload(job)
		}
		v.Indicator, v.Tone = IndicatorResult, ToneSuccess
		v.Summary = job.Result
	case domain.JobFailed:
		if !job.HasFailure {
			return View{}, missingPayload(job)
		}
		v.Indicator, v.Tone = IndicatorFailure, ToneError
		v.TopWords = job.Failure
		if v.TopWords == nil {
			v.TopWords = []string{}
		}
	default:
		return View{}, fmt.Errorf("job %s: unknown status %q", job.ID, job.Status)
	}
	return v, nil
}

// PresentAll maps every job of snap, failing on the first job that cannot be presented.
func PresentAll(snap domain.Snapshot) ([]View, error) {
	views := make([]View, 0, len(snap.Jobs))
	for _, job := range snap.Jobs {
		v, err := Present(job)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func missingPayload(job domain.Job) error {
	return &domain.DataContractError{Reason: domain.TerminalStatusMissingPayload, JobID: job.ID, Status: job.Status}
}
