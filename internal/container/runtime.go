// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container finds a local container runtime (docker or podman) and
// runs one-shot containers that read a document on stdin and write text on
// stdout. The document extractor uses it for OCR when no OCR tools are
// installed on the host.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// ErrNoRuntime is returned when neither docker nor podman is usable.
var ErrNoRuntime = errors.New("no container runtime available")

// Runtime runs containers through a specific binary.
type Runtime interface {
	// Name returns the runtime binary ("docker" or "podman").
	Name() string

	// ImageExists reports an error when image is not present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts image with args, streaming stdin in and stdout out. The
	// container is removed when it exits and has no network access.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

type commander interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osCommander struct{}

func (osCommander) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osCommander) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	return cmd.Run()
}

// binary describes one runtime CLI. Docker and podman differ only in the
// image check subcommand.
type binary struct {
	name       string
	imageCheck []string
	cmd        commander
}

var knownBinaries = []struct {
	name       string
	imageCheck []string
}{
	{"docker", []string{"image", "inspect"}},
	{"podman", []string{"image", "exists"}},
}

func (b *binary) Name() string { return b.name }

func (b *binary) usable(ctx context.Context) bool {
	if _, err := b.cmd.LookPath(b.name); err != nil {
		return false
	}
	return b.cmd.Run(ctx, b.name, []string{"info"}, nil, io.Discard) == nil
}

func (b *binary) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, b.imageCheck...), image)
	if err := b.cmd.Run(ctx, b.name, args, nil, io.Discard); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, b.name, err)
	}
	return nil
}

func (b *binary) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	full := append([]string{"run", "--rm", "-i", "--network", "none", image}, args...)
	if err := b.cmd.Run(ctx, b.name, full, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", b.name, image, err)
	}
	return nil
}

// Detect returns docker when it responds, otherwise podman.
func Detect(ctx context.Context) (Runtime, error) {
	return detect(ctx, osCommander{})
}

func detect(ctx context.Context, cmd commander) (Runtime, error) {
	for _, kb := range knownBinaries {
		b := &binary{name: kb.name, imageCheck: kb.imageCheck, cmd: cmd}
		if b.usable(ctx) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: neither docker nor podman found or operational", ErrNoRuntime)
}
