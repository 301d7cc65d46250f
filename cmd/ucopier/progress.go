package main

import (
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-copier/transfer"
	"github.com/schollz/progressbar/v3"
)

// progress renders engine progress reports as a byte progress bar. The bar
// is created on the first report, once the total is known, and resized when
// the copier announces more data.
type progress struct {
	out   io.Writer
	label string
	bar   *progressbar.ProgressBar
}

func newProgress(out io.Writer, label string) *progress {
	return &progress{out: out, label: label}
}

func (p *progress) Update(pr transfer.Progress) {
	if pr.Total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions64(pr.Total,
			progressbar.OptionSetDescription(p.label),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
		)
	}
	if p.bar.GetMax64() != pr.Total {
		p.bar.ChangeMax64(pr.Total)
	}
	if pr.Retries > 0 || pr.Resyncs > 0 {
		p.bar.Describe(fmt.Sprintf("%s [%s, %d retries, %d resyncs]", p.label, pr.Phase, pr.Retries, pr.Resyncs))
	}
	_ = p.bar.Set64(pr.BytesDone)
}

// Finish completes the bar. After a failed transfer the bar is left at the
// bytes actually moved.
func (p *progress) Finish(err error) {
	if p.bar == nil {
		return
	}
	if err != nil {
		_ = p.bar.Exit()
	} else {
		_ = p.bar.Finish()
	}
	fmt.Fprintln(p.out)
}
