package checker

import (
	"context"
	"strings"
	"sync"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
)

// scriptedRunner answers RunPython by matching the last snippet line against
// canned results, standing in for a real interpreter.
type scriptedRunner struct {
	mu      sync.Mutex
	sources []string
	results map[string]*execution.Result
	errs    map[string]error
	closed  bool
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		results: make(map[string]*execution.Result),
		errs:    make(map[string]error),
	}
}

func (r *scriptedRunner) on(snippet string, result *execution.Result) *scriptedRunner {
	r.results[snippet] = result
	return r
}

func (r *scriptedRunner) fail(snippet string, err error) *scriptedRunner {
	r.errs[snippet] = err
	return r
}

func (r *scriptedRunner) RunPython(ctx context.Context, source string) (*execution.Result, error) {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := lastLine(source)
	if err, ok := r.errs[key]; ok {
		return nil, err
	}
	if result, ok := r.results[key]; ok {
		copied := *result
		return &copied, nil
	}
	return &execution.Result{}, nil
}

func (r *scriptedRunner) Close() error {
	r.closed = true
	return nil
}

func lastLine(source string) string {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func stdout(text string) *execution.Result {
	return &execution.Result{Stdout: text}
}

func raised(trace string) *execution.Result {
	return &execution.Result{ExitCode: 1, Stderr: trace}
}

const zeroDivisionTrace = "Traceback (most recent call last):\n  File \"<stdin>\", line 3, in <module>\nZeroDivisionError: division by zero\n"

const scenarioInput = "# TEST_1:\nprint(x + 3)\n# TEST_2:\nprint(x + 4)\n# TEST_3:\nprint(1/0)\n"

const scenarioOutput = "# TEST_1:\n5\n# TEST_2:\n8\n# TEST_3:\nanything\n"

func scenarioRunner() *scriptedRunner {
	return newScriptedRunner().
		on("print(x + 3)", stdout("5\n")).
		on("print(x + 4)", stdout("6\n")).
		on("print(1/0)", raised(zeroDivisionTrace))
}

const scenarioStdout = separator + "\n" +
	"✅ TEST 1 ПРОЙДЕН!!!\n" +
	separator + "\n\n\n" +
	separator + "\n" +
	"❌ TEST 2 ПРОВАЛЕН!!!\n" +
	"Ожидаемый вывод:\n8\n" +
	"Фактический вывод:\n6\n" +
	separator + "\n\n\n" +
	separator + "\n" +
	"❌ TEST 3 ПРОВАЛЕН С ИСКЛЮЧЕНИЕМ!!!\n" +
	separator + "\n\n\n"
