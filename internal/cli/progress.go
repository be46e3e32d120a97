package cli

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/phobologic/abuild/internal/toolchain"
)

// progress shows finished compiler invocations on a progress bar. A
// disabled progress does nothing.
type progress struct {
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgress(w io.Writer, enabled bool) *progress {
	return &progress{w: w, enabled: enabled}
}

func (a *app) showProgress() bool {
	return !a.verbose && isTerminal(a.streams.Err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// start begins a bar for total jobs. A negative total shows a spinner.
func (p *progress) start(description string, total int) {
	if !p.enabled {
		return
	}
	p.finish()
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progress) onResult(toolchain.Result) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
