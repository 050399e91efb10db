package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// GitRunner runs git with args. Tests replace it.
type GitRunner func(ctx context.Context, args ...string) error

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Cloner makes shallow clones. Clones through one Cloner are serialized.
type Cloner struct {
	mu     sync.Mutex
	git    GitRunner
	logger *slog.Logger
}

// ClonerOption configures a Cloner.
type ClonerOption func(*Cloner)

// WithGitRunner replaces the git invocation.
func WithGitRunner(run GitRunner) ClonerOption {
	return func(c *Cloner) {
		c.git = run
	}
}

// WithClonerLogger sets the logger.
func WithClonerLogger(logger *slog.Logger) ClonerOption {
	return func(c *Cloner) {
		c.logger = logger
	}
}

// NewCloner creates a Cloner that shells out to git.
func NewCloner(opts ...ClonerOption) *Cloner {
	c := &Cloner{git: runGit, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "source")
	return c
}

// Clone shallow-clones url into dir unless dir already exists. It reports
// whether a clone was made.
func (c *Cloner) Clone(ctx context.Context, url, dir string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, ErrRepoURLRequired
	}
	if dir == "" {
		return false, ErrTargetDirRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if st, err := os.Stat(dir); err == nil {
		if !st.IsDir() {
			return false, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		c.logger.Info("repository already present, skipping clone", "dir", dir)
		return false, nil
	}

	c.logger.Info("cloning repository", "url", url, "dir", dir)
	if err := c.git(ctx, "clone", "--depth", "1", "--no-single-branch", url, dir); err != nil {
		return false, err
	}
	c.logger.Info("clone completed", "dir", dir)
	return true, nil
}
