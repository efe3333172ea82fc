package modelpack

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report is the outcome of a Packer run.
type Report struct {
	Results  []Result      `json:"results"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the results that failed.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Summary renders the report for a terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, res := range r.Results {
		switch res.Status {
		case StatusSkipped:
			fmt.Fprintf(&b, "skip  %s: %s\n", res.Model, res.Err)
			continue
		case StatusFailed:
			fmt.Fprintf(&b, "fail  %s: %s\n", res.Model, res.Err)
			continue
		}
		fmt.Fprintf(&b, "ok    %s\n", res.Model)
		fmt.Fprintf(&b, "      original: %s\n", humanize.Bytes(uint64(res.OriginalSize)))
		fmt.Fprintf(&b, "      output:   %s\n", humanize.Bytes(uint64(res.OutputSize)))
		if res.Status == StatusCopied {
			b.WriteString("      already draco-compressed, copied as is\n")
		} else {
			change := "smaller"
			red := res.Reduction()
			if red < 0 {
				change = "larger"
			}
			fmt.Fprintf(&b, "      %.1f%% %s\n", math.Abs(red), change)
		}
	}

	fmt.Fprintf(&b, "\n%d compressed, %d copied, %d skipped, %d failed in %s\n",
		r.Count(StatusCompressed), r.Count(StatusCopied), r.Count(StatusSkipped), r.Count(StatusFailed),
		r.Duration.Round(time.Millisecond))
	return b.String()
}

// NextSteps tells the operator how to switch the site over to the
// compressed models by hand. The server also serves them directly from the
// output directory once manifest.json is present.
func NextSteps(sourceDir, outputDir string) string {
	return fmt.Sprintf(`To serve the processed models in place of the originals:
  1. back up %[1]s as %[1]s-original
  2. rename %[2]s to %[1]s
  3. check page load times
Some models are already optimised and shrink very little.
`, sourceDir, outputDir)
}
