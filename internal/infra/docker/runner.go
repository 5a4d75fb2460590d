// Package docker runs Python programs inside throwaway Docker containers.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

const (
	defaultImage   = "python:3.12-alpine"
	defaultWorkdir = "/tmp"
	programFile    = "main.py"
)

// Config describes how to create a new Runner.
type Config struct {
	Image   string
	Workdir string
	Logger  *zap.Logger
}

// Runner evaluates every program in a fresh container created from Image.
type Runner struct {
	cli     dockerClient
	image   string
	workdir string
	logger  *zap.Logger

	pullOnce sync.Once
	pullErr  error
}

// ensure Runner implements ports.PythonRunner.
var _ ports.PythonRunner = (*Runner)(nil)

// New creates a Runner talking to the Docker daemon configured in the environment.
func New(cfg Config) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newRunner(cli, cfg), nil
}

func newRunner(cli dockerClient, cfg Config) *Runner {
	if cfg.Image == "" {
		cfg.Image = defaultImage
	}
	if cfg.Workdir == "" {
		cfg.Workdir = defaultWorkdir
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runner{
		cli:     cli,
		image:   cfg.Image,
		workdir: cfg.Workdir,
		logger:  cfg.Logger,
	}
}

// Close releases the underlying Docker client resources.
func (r *Runner) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}

// RunPython copies source into a new container as main.py and runs it.
func (r *Runner) RunPython(ctx context.Context, source string) (*execution.Result, error) {
	if err := r.ensureImage(ctx); err != nil {
		return nil, err
	}

	containerID, cleanup, err := r.createContainer(ctx, []string{"python", "-X", "utf8", programFile})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := r.copyFiles(ctx, containerID, []fileSpec{{Name: programFile, Mode: 0o644, Data: []byte(source)}}); err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}

	start := time.Now()
	if err := r.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	status, err := r.waitForExit(ctx, containerID)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	stdout, stderr, err := r.fetchLogs(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}

	return &execution.Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: status.StatusCode,
		Duration: duration,
	}, nil
}

type fileSpec struct {
	Name string
	Mode int64
	Data []byte
}

func (r *Runner) ensureImage(ctx context.Context) error {
	r.pullOnce.Do(func() {
		r.logger.Info("pulling python image", zap.String("image", r.image))
		reader, err := r.cli.ImagePull(ctx, r.image, image.PullOptions{})
		if err != nil {
			r.pullErr = fmt.Errorf("pull image: %w", err)
			return
		}
		defer reader.Close()
		if _, err := io.Copy(io.Discard, reader); err != nil {
			r.pullErr = fmt.Errorf("consume pull output: %w", err)
		}
	})
	return r.pullErr
}

func (r *Runner) createContainer(ctx context.Context, cmd []string) (string, func(), error) {
	resp, err := r.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:        r.image,
			Cmd:          cmd,
			Env:          []string{"PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1"},
			AttachStdout: true,
			AttachStderr: true,
			WorkingDir:   r.workdir,
		},
		&container.HostConfig{},
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	cleanup := func() {
		if err := r.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Warn("failed to remove container", zap.String("container", resp.ID), zap.Error(err))
		}
	}

	return resp.ID, cleanup, nil
}

func (r *Runner) copyFiles(ctx context.Context, containerID string, files []fileSpec) error {
	if len(files) == 0 {
		return nil
	}

	reader, err := makeArchive(files)
	if err != nil {
		return err
	}

	return r.cli.CopyToContainer(ctx, containerID, r.workdir, reader, container.CopyToContainerOptions{AllowOverwriteDirWithFile: true})
}

func makeArchive(files []fileSpec) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	now := time.Now()
	for _, file := range files {
		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}

		header := &tar.Header{
			Name:    file.Name,
			Mode:    mode,
			Size:    int64(len(file.Data)),
			ModTime: now,
		}

		if err := tw.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write tar contents: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar writer: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

func (r *Runner) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container error: %s", status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		return nil, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for container: %w", ctx.Err())
	}
}

func (r *Runner) fetchLogs(ctx context.Context, containerID string) (stdout, stderr string, err error) {
	logs, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, logs); err != nil {
		return "", "", err
	}

	return stdoutBuf.String(), stderrBuf.String(), nil
}
