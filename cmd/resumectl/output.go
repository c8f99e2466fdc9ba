package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
)

const detailWidth = 60

func printViews(w io.Writer, views []reconciler.View) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No documents uploaded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tFILE\tSUBMITTED\tDETAIL")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Status, v.FileName, v.SubmittedAt.Local().Format("2006-01-02 15:04"), detail(v))
	}
	return tw.Flush()
}

// detail is the one-line artifact shown for a job.
func detail(v reconciler.View) string {
	switch v.Indicator {
	case reconciler.IndicatorResult:
		line, _, _ := strings.Cut(strings.TrimSpace(v.Summary), "\n")
		return truncate(strings.TrimLeft(line, "# "), detailWidth)
	case reconciler.IndicatorFailure:
		if len(v.TopWords) == 0 {
			return "analysis failed, no words extracted"
		}
		return truncate("top words: "+strings.Join(v.TopWords, ", "), detailWidth)
	default:
		return "processing..."
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// changePrinter prints a line for each job whose status differs from the
// last snapshot it saw.
type changePrinter struct {
	w    io.Writer
	seen map[string]domain.JobStatus
}

func newChangePrinter(w io.Writer) *changePrinter {
	return &changePrinter{w: w, seen: make(map[string]domain.JobStatus)}
}

func (p *changePrinter) print(snap domain.Snapshot) error {
	for _, job := range snap.Jobs {
		if p.seen[job.ID] == job.Status {
			continue
		}
		p.seen[job.ID] = job.Status

		view, err := reconciler.Present(job)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(p.w, "%s\t%s\t%s\t%s\n", view.ID, view.Status, view.FileName, detail(view)); err != nil {
			return err
		}
	}
	return nil
}
