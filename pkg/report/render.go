package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"regatta/pkg/api"
)

const (
	progressBarWidth       = 20
	progressBarChar        = "■"
	progressBarPlaceholder = "·"
)

var statusIconMap map[api.Status]string

func init() {
	statusIconMap = map[api.Status]string{
		api.StatusPending:   "◷",
		api.StatusRunning:   "●",
		api.StatusSucceeded: "✔",
		api.StatusFailed:    "✖",
		api.StatusTimedOut:  "✖",
		api.StatusSkipped:   "○",
		api.StatusCancelled: "ǁ",
	}
}

// RenderState prints the live state of a run, one line per job instance in
// materialization order.
func RenderState(w io.Writer, state api.PipelineState) {
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", state.Name)
	fmt.Fprintf(tw, "RunID:\t%s\n", state.RunID)
	fmt.Fprintf(tw, "Status:\t%s\n", state.Status)
	fmt.Fprintf(tw, "Started:\t%s\n", date(state.StartTime))
	fmt.Fprintf(tw, "Finished:\t%s\n", date(state.EndTime))
	fmt.Fprintf(tw, "Duration:\t%s\n", duration(state.StartTime, state.EndTime))
	tw.Flush()
	fmt.Fprintln(w)

	tw.Init(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tDURATION\tSTEPS")
	fmt.Fprintf(tw, "%s %s\t\t\n", statusIconMap[state.Status], state.Name)
	for i, inst := range state.Instances {
		prefix := "├"
		if i == len(state.Instances)-1 {
			prefix = "└"
		}
		fmt.Fprintf(tw, "%s %s %s\t%s\t%s\n", prefix, statusIconMap[inst.Status], inst.ID,
			duration(inst.StartTime, inst.EndTime), stepProgression(inst))
	}
	tw.Flush()
}

// Render prints the final report: the verdict, one line per job instance and
// the step detail of every instance that did not succeed.
func Render(w io.Writer, res api.PipelineResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Pipeline %s: %s\n", res.Name, res.Verdict)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tSTATUS\tDURATION\tCAUSE")
	for _, id := range res.Instances {
		jr, ok := res.Jobs[id]
		if !ok {
			fmt.Fprintf(tw, "%s %s\t%s\t\t\n", statusIconMap[api.StatusPending], id, api.StatusPending)
			continue
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", statusIconMap[jr.Outcome], id, jr.Outcome,
			duration(jr.StartTime, jr.EndTime), cause(jr))
	}
	tw.Flush()

	for _, id := range res.Instances {
		jr, ok := res.Jobs[id]
		if !ok || jr.Outcome == api.StatusSucceeded || jr.Outcome == api.StatusCancelled {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Steps of %s:\n", id)
		for _, sr := range jr.Steps {
			fmt.Fprintf(w, "  %s %s (%s)\n", statusIconMap[sr.Outcome], sr.Name, stepDetail(sr))
			if sr.Outcome == api.StatusFailed || sr.Outcome == api.StatusTimedOut {
				for _, line := range lastLines(sr.Output, 10) {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	}
}

func cause(jr api.JobResult) string {
	if jr.Outcome == api.StatusCancelled && jr.CancelledBy != "" {
		return fmt.Sprintf("cancelled by %s", jr.CancelledBy)
	}
	for _, sr := range jr.Steps {
		switch sr.Outcome {
		case api.StatusFailed, api.StatusTimedOut:
			return fmt.Sprintf("step %s %s", sr.Name, stepDetail(sr))
		}
	}
	return ""
}

func stepDetail(sr api.StepResult) string {
	switch {
	case sr.LaunchError != "":
		return fmt.Sprintf("launch error: %s", sr.LaunchError)
	case sr.Outcome == api.StatusTimedOut:
		return "timed out"
	case sr.Outcome == api.StatusFailed:
		return fmt.Sprintf("exit code %d", sr.ExitCode)
	default:
		return string(sr.Outcome)
	}
}

func stepProgression(inst api.InstanceState) string {
	if inst.StepsTotal == 0 {
		return ""
	}
	if inst.Status.Finished() || inst.StepsDone == inst.StepsTotal {
		return fmt.Sprintf("%d/%d", inst.StepsDone, inst.StepsTotal)
	}
	return fmt.Sprintf("%s %d/%d", progressBar(inst.StepsDone, inst.StepsTotal), inst.StepsDone, inst.StepsTotal)
}

func progressBar(current, total int) string {
	value := (current * progressBarWidth) / total
	buf := bytes.NewBuffer(make([]byte, 0, progressBarWidth))
	for i := 0; i < progressBarWidth; i++ {
		if i < value {
			fmt.Fprintf(buf, progressBarChar)
		} else {
			fmt.Fprintf(buf, progressBarPlaceholder)
		}
	}
	return buf.String()
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2 Jan 2006 15:04:05.000")
}

func duration(start, end *time.Time) string {
	var d time.Duration
	if start == nil {
		return ""
	}
	if end == nil {
		d = time.Now().Sub(*start)
	} else {
		d = end.Sub(*start)
	}

	if d.Seconds() <= 60.0 {
		return fmt.Sprintf("%0.0fs", d.Seconds())
	} else if d.Minutes() <= 60.0 {
		m := int64(d.Minutes())
		s := math.Mod(d.Seconds(), 60)
		return fmt.Sprintf("%0.dm %0.0fs", m, s)
	} else {
		h := int64(d.Hours())
		m := int64(math.Mod(d.Minutes(), 60))
		s := math.Mod(d.Seconds(), 60)
		return fmt.Sprintf("%0.dh %0.dm %0.0fs", h, m, s)
	}
}
