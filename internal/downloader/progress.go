package downloader

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// TerminalProgress is a ProgressFactory rendering a byte progress bar
// on stderr. With a known total the bar shows transferred-of-total;
// with total -1 it degrades to an indeterminate spinner with a running
// byte count.
func TerminalProgress(total int64, description string) ProgressSink {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// NopProgress is a ProgressFactory that discards all updates. Used in
// tests and when no terminal is attached.
func NopProgress(total int64, description string) ProgressSink {
	return nopSink{}
}

// ProgressForTerminal selects the progress factory for the attached
// output: a live bar when stderr is a terminal, silent otherwise so
// redirected output is not polluted with control sequences.
func ProgressForTerminal(isTerminal bool) ProgressFactory {
	if isTerminal {
		return TerminalProgress
	}
	return NopProgress
}

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }
func (nopSink) Close() error                { return nil }
