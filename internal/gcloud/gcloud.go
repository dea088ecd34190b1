package gcloud

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	json "github.com/goccy/go-json"
)

// FailureKind classifies why a gcloud invocation could not produce usable data.
type FailureKind int

const (
	FailUnknown FailureKind = iota
	FailParse
	FailPermissionDenied
	FailAPIDisabled
	FailAuth
)

func (k FailureKind) String() string {
	switch k {
	case FailParse:
		return "PARSE_FAILURE"
	case FailPermissionDenied:
		return "PERMISSION_DENIED"
	case FailAPIDisabled:
		return "API_DISABLED"
	case FailAuth:
		return "AUTH_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ExecError is the only error type that crosses this package's boundary.
// An empty result is not an error; callers get a nil error and an empty value.
type ExecError struct {
	Kind   FailureKind
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("gcloud %s: %s: %v", strings.Join(e.Args, " "), e.Kind, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or FailUnknown for errors that did
// not originate here.
func KindOf(err error) FailureKind {
	if execErr, ok := err.(*ExecError); ok {
		return execErr.Kind
	}
	return FailUnknown
}

func IsPermissionDenied(err error) bool {
	return KindOf(err) == FailPermissionDenied
}

func IsAPIDisabled(err error) bool {
	return KindOf(err) == FailAPIDisabled
}

func IsAuthFailure(err error) bool {
	return KindOf(err) == FailAuth
}

// Executor runs one external command and returns its output streams. The
// production executor shells out; tests substitute canned responses.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// EnsureInstalled verifies the gcloud binary is reachable. Called once before
// any collection starts; a missing binary is fatal to the whole run.
func EnsureInstalled() error {
	if _, err := exec.LookPath("gcloud"); err != nil {
		return fmt.Errorf("the gcloud command line tool is not installed or not in your PATH; install it from https://cloud.google.com/sdk/docs/install and run 'gcloud init'")
	}
	return nil
}

// Client issues gcloud commands under a single credential context. If a
// service account key file is configured, it is activated once before the
// first call; activation failure poisons the client and every later call
// returns the same FailAuth error.
type Client struct {
	exec      Executor
	keyFile   string
	activated bool
	authErr   error
}

type Option func(*Client)

func WithExecutor(e Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithKeyFile configures an explicit service account key. Without it the
// ambient gcloud credentials are used silently.
func WithKeyFile(path string) Option {
	return func(c *Client) { c.keyFile = path }
}

func NewClient(opts ...Option) *Client {
	c := &Client{exec: execRunner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ensureActivated(ctx context.Context) error {
	if c.keyFile == "" || c.activated {
		return c.authErr
	}
	if c.authErr != nil {
		return c.authErr
	}
	args := []string{"auth", "activate-service-account", "--key-file", c.keyFile, "--quiet"}
	_, stderr, err := c.exec.Run(ctx, "gcloud", args...)
	if err != nil {
		c.authErr = &ExecError{Kind: FailAuth, Args: args, Stderr: stderr, Err: err}
		return c.authErr
	}
	c.activated = true
	return nil
}

func (c *Client) run(ctx context.Context, args []string) (string, error) {
	if err := c.ensureActivated(ctx); err != nil {
		return "", err
	}
	stdout, stderr, err := c.exec.Run(ctx, "gcloud", args...)
	if err != nil {
		return "", &ExecError{Kind: classify(stderr), Args: args, Stderr: stderr, Err: err}
	}
	return stdout, nil
}

// RunText executes a gcloud command and returns trimmed raw output.
func (c *Client) RunText(ctx context.Context, args ...string) (string, error) {
	out, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RunJSON executes a gcloud command and decodes its JSON output into v.
// Empty output leaves v untouched and returns nil: a project with no
// resources of a kind is an empty listing, not a failure.
func (c *Client) RunJSON(ctx context.Context, v interface{}, args ...string) error {
	out, err := c.run(ctx, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return &ExecError{Kind: FailParse, Args: args, Err: err}
	}
	return nil
}

func classify(stderr string) FailureKind {
	switch {
	case strings.Contains(stderr, "PERMISSION_DENIED"):
		return FailPermissionDenied
	case strings.Contains(stderr, "API not enabled"),
		strings.Contains(stderr, "API has not been used"):
		return FailAPIDisabled
	default:
		return FailUnknown
	}
}
