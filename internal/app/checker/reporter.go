package checker

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const separator = "=================================="

// Reporter writes the human-readable transcript of a run. Markers and
// diagnostics go to out; exception traces go to trace. Both may be the same
// writer. The first write error is kept and returned by Err; later writes are
// skipped.
type Reporter struct {
	out   io.Writer
	trace io.Writer
	err   error

	pass func(a ...interface{}) string
	fail func(a ...interface{}) string
}

// NewReporter builds a Reporter. When colorize is true pass and fail markers
// are wrapped in ANSI colors even if the target is not a terminal.
func NewReporter(out, trace io.Writer, colorize bool) *Reporter {
	r := &Reporter{
		out:   out,
		trace: trace,
		pass:  fmt.Sprint,
		fail:  fmt.Sprint,
	}
	if colorize {
		green := color.New(color.FgGreen, color.Bold)
		green.EnableColor()
		red := color.New(color.FgRed, color.Bold)
		red.EnableColor()
		r.pass = green.SprintFunc()
		r.fail = red.SprintFunc()
	}
	return r
}

// BeginTest writes the separator that opens a test block.
func (r *Reporter) BeginTest() {
	r.writeLine(r.out, separator)
}

// EndTest writes the separator that closes a test block, followed by two
// blank lines.
func (r *Reporter) EndTest() {
	r.write(r.out, separator+"\n\n\n")
}

// Passed reports a test whose output matched.
func (r *Reporter) Passed(number int) {
	r.writeLine(r.out, r.pass(fmt.Sprintf("✅ TEST %d ПРОЙДЕН!!!", number)))
}

// Failed reports a test whose normalized output differed from the expected one.
func (r *Reporter) Failed(number int, expected, actual string) {
	r.writeLine(r.out, r.fail(fmt.Sprintf("❌ TEST %d ПРОВАЛЕН!!!", number)))
	r.writeLine(r.out, "Ожидаемый вывод:")
	r.writeLine(r.out, expected)
	r.writeLine(r.out, "Фактический вывод:")
	r.writeLine(r.out, actual)
}

// Raised reports a test whose program terminated with an exception and dumps
// the trace.
func (r *Reporter) Raised(number int, trace string) {
	r.writeLine(r.out, r.fail(fmt.Sprintf("❌ TEST %d ПРОВАЛЕН С ИСКЛЮЧЕНИЕМ!!!", number)))
	if trace == "" {
		return
	}
	if !strings.HasSuffix(trace, "\n") {
		trace += "\n"
	}
	r.write(r.trace, trace)
}

// Err returns the first error encountered while writing.
func (r *Reporter) Err() error {
	return r.err
}

func (r *Reporter) writeLine(w io.Writer, line string) {
	r.write(w, line+"\n")
}

func (r *Reporter) write(w io.Writer, text string) {
	if r.err != nil {
		return
	}
	if _, err := io.WriteString(w, text); err != nil {
		r.err = err
	}
}
