package checker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/fixture"
)

// Default fixture locations, relative to the working directory.
const (
	DefaultInputPath  = "input.txt"
	DefaultOutputPath = "output.txt"
)

// Validation failures. Every error returned by Validate wraps one of these.
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrNotAFile           = errors.New("path must be a file, not directory")
	ErrResultsDirNotFound = errors.New("directory doesn't exist")
)

// PathError describes a path rejected before any test runs.
type PathError struct {
	// Role names the argument: "code", "input", "output" or "results".
	Role string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Role, e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Options names the files of a check run.
type Options struct {
	CodePath   string
	InputPath  string
	OutputPath string
	// ResultsPath, when set, receives the whole transcript instead of the
	// console. The file is created or truncated.
	ResultsPath string
}

func (o Options) withDefaults() Options {
	if o.InputPath == "" {
		o.InputPath = DefaultInputPath
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	return o
}

type namedPath struct {
	role string
	path string
}

func (o Options) sources() []namedPath {
	return []namedPath{
		{"code", o.CodePath},
		{"input", o.InputPath},
		{"output", o.OutputPath},
	}
}

// Validate checks the paths of opts in a fixed order and returns the first
// violation: every source must exist, then every source must be a regular
// file, then the results file (if any) must have an existing parent directory
// and must not be a directory itself.
func Validate(opts Options) error {
	opts = opts.withDefaults()
	sources := opts.sources()

	infos := make([]fs.FileInfo, len(sources))
	for idx, src := range sources {
		info, err := os.Stat(src.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &PathError{Role: src.role, Path: src.path, Err: ErrFileNotFound}
			}
			return fmt.Errorf("stat %s file: %w", src.role, err)
		}
		infos[idx] = info
	}

	for idx, src := range sources {
		if !infos[idx].Mode().IsRegular() {
			return &PathError{Role: src.role, Path: src.path, Err: ErrNotAFile}
		}
	}

	if opts.ResultsPath == "" {
		return nil
	}

	dir := filepath.Dir(opts.ResultsPath)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &PathError{Role: "results", Path: dir, Err: ErrResultsDirNotFound}
		}
		return fmt.Errorf("stat results directory: %w", err)
	}

	info, err := os.Stat(opts.ResultsPath)
	switch {
	case err == nil && info.IsDir():
		return &PathError{Role: "results", Path: opts.ResultsPath, Err: ErrNotAFile}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat results file: %w", err)
	}

	return nil
}

// CheckCode validates opts, runs every paired test case of the fixtures
// against the submission and writes the transcript to the console or to the
// results file. Test failures are reported, not returned; the error is non-nil
// only for validation, I/O or cancellation failures.
func (s *Service) CheckCode(ctx context.Context, opts Options) (err error) {
	opts = opts.withDefaults()
	if err := Validate(opts); err != nil {
		return err
	}

	out, trace := s.stdout, s.stderr
	if opts.ResultsPath != "" {
		file, err := os.Create(opts.ResultsPath)
		if err != nil {
			return fmt.Errorf("open results file: %w", err)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close results file: %w", cerr)
			}
		}()
		out, trace = file, file
	}

	suite, err := loadSuite(opts)
	if err != nil {
		return err
	}

	s.logger.Info("checking submission",
		zap.String("code", opts.CodePath),
		zap.String("input", opts.InputPath),
		zap.String("output", opts.OutputPath),
		zap.Int("tests", len(suite.Tests)),
	)

	_, err = s.RunSuite(ctx, suite, s.NewReporter(out, trace))
	return err
}

// Sources holds the decoded contents of the three files of a check run.
type Sources struct {
	Submission string
	Input      string
	Output     string
}

// ReadSources reads the input, output and code files of opts, in that order,
// as UTF-8 text with universal newlines. It does not validate the paths; call
// Validate first.
func ReadSources(opts Options) (Sources, error) {
	opts = opts.withDefaults()

	var src Sources
	reads := []struct {
		path   string
		target *string
	}{
		{opts.InputPath, &src.Input},
		{opts.OutputPath, &src.Output},
		{opts.CodePath, &src.Submission},
	}
	for _, r := range reads {
		text, err := readText(r.path)
		if err != nil {
			return Sources{}, err
		}
		*r.target = text
	}
	return src, nil
}

func loadSuite(opts Options) (execution.Suite, error) {
	src, err := ReadSources(opts)
	if err != nil {
		return execution.Suite{}, err
	}
	return fixture.NewSuite(opts.CodePath, src.Submission, src.Input, src.Output), nil
}

// readText reads a UTF-8 text file and converts "\r\n" and "\r" line endings
// to "\n".
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: invalid UTF-8", path)
	}
	return normalizeNewlines(string(data)), nil
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
