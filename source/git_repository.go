package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
)

// GitRepository reads the configuration document from a file inside a Git
// repository kept as an in-memory clone.
// Deprecated: every refresh pulls from the Git host and hosted providers rate
// limit that. Publish the document to S3/GCS from CI and use those
// repositories instead.
type GitRepository struct {
	document
	Name   string          // Name of the configuration source
	URL    *url.URL        // URL of the Git repository
	Path   string          // Path of the configuration document within the repository
	Branch string          // Branch to check out, the remote HEAD when empty
	Auth   *http.BasicAuth // BasicAuth to use when cloning and pulling

	mu            sync.Mutex      // Serializes clone and pull
	gitRepository *git.Repository // In-memory clone
	fs            billy.Filesystem
}

// GetName returns the name of the configuration source.
func (g *GitRepository) GetName() string {
	if g.Name == "" {
		return "git"
	}
	return g.Name
}

// Refresh clones the repository on first use, pulls afterwards, and swaps in
// the content of Path.
func (g *GitRepository) Refresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gitRepository == nil {
		fs := memfs.New()
		opts := &git.CloneOptions{URL: g.URL.String(), SingleBranch: g.Branch != ""}
		if g.Branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		}
		if g.Auth != nil {
			opts.Auth = g.Auth
		}
		logrus.Debugf("Cloning %s into memory", g.URL.Redacted())
		r, err := git.CloneContext(ctx, memory.NewStorage(), fs, opts)
		if err != nil {
			return fmt.Errorf("cloning %s: %w", g.URL.Redacted(), err)
		}
		g.gitRepository = r
		g.fs = fs
		logrus.Debug("Cloned")
	} else {
		w, err := g.gitRepository.Worktree()
		if err != nil {
			return err
		}
		pullOptions := &git.PullOptions{Force: true}
		if g.Branch != "" {
			pullOptions.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
			pullOptions.SingleBranch = true
		}
		if g.Auth != nil {
			pullOptions.Auth = g.Auth
		}
		err = w.PullContext(ctx, pullOptions)
		switch {
		case errors.Is(err, git.NoErrAlreadyUpToDate):
			logrus.Debug("Already up to date")
		case err != nil:
			return fmt.Errorf("pulling %s: %w", g.URL.Redacted(), err)
		default:
			logrus.Debug("Pulled")
		}
	}

	file, err := g.fs.Open(g.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", g.Path, err)
	}
	defer func(file billy.File) {
		err := file.Close()
		if err != nil {
			logrus.WithError(err).Error("error closing file")
		}
	}(file)

	fileContent, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", g.Path, err)
	}
	return g.swap(fileContent)
}
