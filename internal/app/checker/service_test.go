package checker

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/fixture"
)

func TestRunSuiteScenario(t *testing.T) {
	t.Parallel()

	runner := scenarioRunner()
	service := NewService(runner)

	var out, trace bytes.Buffer
	suite := fixture.NewSuite("scenario", "x = 2", scenarioInput, scenarioOutput)
	results, err := service.RunSuite(context.Background(), suite, service.NewReporter(&out, &trace))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, execution.StatusPassed, results[0].Status)
	assert.True(t, results[0].Passed())

	assert.Equal(t, execution.StatusFailed, results[1].Status)
	assert.Equal(t, "8", results[1].Expected)
	assert.Equal(t, "6", results[1].Actual)

	assert.Equal(t, execution.StatusException, results[2].Status)
	assert.False(t, results[2].Passed())
	assert.Contains(t, results[2].Trace, "ZeroDivisionError")

	assert.Equal(t, scenarioStdout, out.String())
	assert.Equal(t, zeroDivisionTrace, trace.String())

	require.Len(t, runner.sources, 3)
	assert.Equal(t, "x = 2\n\nprint(x + 3)\n", runner.sources[0])
}

func TestCheckTestIgnoresWhitespaceDifferences(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().on("show()", stdout("\n  first  \n\n\tsecond\n\n"))
	service := NewService(runner)

	var out bytes.Buffer
	test := execution.TestCase{Number: 1, Code: "show()", ExpectedOutput: "first\nsecond   \n\n"}
	result, err := service.CheckTest(context.Background(), test, execution.Script{Source: "def show(): ..."}, service.NewReporter(&out, &out))
	require.NoError(t, err)

	assert.True(t, result.Passed())
	assert.Equal(t, "first\nsecond", result.Actual)
}

func TestCheckTestDetectsInnerDifference(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().on("go()", stdout("a  b\n"))
	service := NewService(runner)

	var out bytes.Buffer
	test := execution.TestCase{Number: 7, Code: "go()", ExpectedOutput: "a b"}
	result, err := service.CheckTest(context.Background(), test, execution.Script{}, service.NewReporter(&out, &out))
	require.NoError(t, err)

	assert.Equal(t, execution.StatusFailed, result.Status)
	assert.Contains(t, out.String(), "❌ TEST 7 ПРОВАЛЕН!!!")
	assert.Contains(t, out.String(), "Ожидаемый вывод:\na b\nФактический вывод:\na  b\n")
}

func TestCheckTestRuntimeErrorBecomesException(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().
		fail("broken()", errors.New("docker daemon unavailable")).
		on("fine()", stdout("ok"))
	service := NewService(runner)

	var out, trace bytes.Buffer
	suite := execution.Suite{Tests: []execution.TestCase{
		{Number: 1, Code: "broken()", ExpectedOutput: "ok"},
		{Number: 2, Code: "fine()", ExpectedOutput: "ok"},
	}}
	results, err := service.RunSuite(context.Background(), suite, service.NewReporter(&out, &trace))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, execution.StatusException, results[0].Status)
	assert.Contains(t, trace.String(), "docker daemon unavailable")
	assert.Equal(t, execution.StatusPassed, results[1].Status)
}

func TestCheckTestSilentNonZeroExit(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().on("exit(3)", &execution.Result{ExitCode: 3})
	service := NewService(runner)

	var out, trace bytes.Buffer
	test := execution.TestCase{Number: 1, Code: "exit(3)"}
	result, err := service.CheckTest(context.Background(), test, execution.Script{}, service.NewReporter(&out, &trace))
	require.NoError(t, err)

	assert.Equal(t, execution.StatusException, result.Status)
	assert.Equal(t, "program exited with status 3\n", trace.String())
}

func TestRunSuiteStopsOnCancellation(t *testing.T) {
	t.Parallel()

	service := NewService(newScriptedRunner())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	suite := fixture.NewSuite("cancelled", "", scenarioInput, scenarioOutput)
	results, err := service.RunSuite(ctx, suite, service.NewReporter(&out, &out))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	// The block is still closed.
	assert.Equal(t, separator+"\n"+separator+"\n\n\n", out.String())
}

func TestRunSuiteStopsOnWriteError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("broken pipe")
	w := &failingWriter{err: wantErr}
	service := NewService(scenarioRunner())

	suite := fixture.NewSuite("broken", "x = 2", scenarioInput, scenarioOutput)
	results, err := service.RunSuite(context.Background(), suite, service.NewReporter(w, w))
	require.ErrorIs(t, err, wantErr)
	assert.Len(t, results, 1)
}

func TestRunSuiteTruncatesMismatchedFixtures(t *testing.T) {
	t.Parallel()

	runner := scenarioRunner()
	service := NewService(runner)

	var out bytes.Buffer
	suite := fixture.NewSuite("short", "x = 2", scenarioInput, "# TEST_1:\n5\n")
	results, err := service.RunSuite(context.Background(), suite, service.NewReporter(&out, &out))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed())
	assert.Len(t, runner.sources, 1)
}

func TestRunSuiteWithoutMarkers(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	service := NewService(runner)

	var out bytes.Buffer
	suite := fixture.NewSuite("empty", "x = 2", "print(x)\n", "2\n")
	results, err := service.RunSuite(context.Background(), suite, service.NewReporter(&out, &out))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, out.String())
	assert.Empty(t, runner.sources)
}

func TestServiceClose(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	require.NoError(t, NewService(runner).Close())
	assert.True(t, runner.closed)
}
