// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	ctx := context.Background()
	docker := newDockerRuntime(&mockExecutor{runnableCmds: map[string]bool{"docker image inspect pdftotext:latest": true}})
	assert.NoError(t, docker.ImageExists(ctx, "pdftotext:latest"))

	podman := newPodmanRuntime(&mockExecutor{})
	err := podman.ImageExists(ctx, "pdftotext:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext:latest")
}

func TestRun(t *testing.T) {
	var gotArgs []string
	rt := newDockerRuntime(&mockExecutor{
		runPipedFunc: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
			gotArgs = args
			data, _ := io.ReadAll(stdin)
			_, _ = stdout.Write([]byte("text: " + string(data)))
			return nil
		},
	})

	var out bytes.Buffer
	err := rt.Run(context.Background(), "pdftotext:latest", []string{"-layout", "-", "-"}, strings.NewReader("pdf bytes"), &out)
	require.NoError(t, err)
	assert.Equal(t, "text: pdf bytes", out.String())
	assert.Equal(t, []string{"run", "--rm", "-i", "--network", "none", "pdftotext:latest", "-layout", "-", "-"}, gotArgs)
}

func TestRunFailureIncludesStderr(t *testing.T) {
	rt := newPodmanRuntime(&mockExecutor{
		runPipedFunc: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
			_, _ = stderr.Write([]byte("Syntax Error: couldn't find trailer\n"))
			return errors.New("exit status 1")
		},
	})
	err := rt.Run(context.Background(), "pdftotext:latest", nil, strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't find trailer")
	assert.Contains(t, err.Error(), "podman")
}
