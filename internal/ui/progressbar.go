package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// RowProgress reports exported rows on an indeterminate spinner bar.
type RowProgress struct {
	bar   *progressbar.ProgressBar
	start time.Time
	rows  int
}

func NewRowProgress(out io.Writer) *RowProgress {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Exporting rows"),
		progressbar.OptionEnableColorCodes(false),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
	)
	return &RowProgress{bar: bar, start: time.Now()}
}

// Row is called once per exported row.
func (p *RowProgress) Row(count int) {
	if p == nil {
		return
	}
	p.rows = count
	p.bar.Describe(fmt.Sprintf("Exporting rows... %d rows", count))
	_ = p.bar.Add(1)
}

// Finish clears the bar.
func (p *RowProgress) Finish() {
	if p == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("Exporting rows... %d rows [%ds]", p.rows, int(time.Since(p.start).Seconds())))
	_ = p.bar.Finish()
	_ = p.bar.Clear()
}
