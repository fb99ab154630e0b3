// Package vcs is the VCS collaborator: commit-then-push atomically on
// graceful shutdown, per spec.md §9's resolution of its first open
// question. Grounded on the go-git/v5 dependency path pulled from the
// pack's manifests (Raikerian-go-discord-chatgpt, NeboLoop-nebo) since
// no source using it survived filtering; built from the library's
// documented plumbing/porcelain API.
package vcs

import (
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Repo wraps a local git checkout that daily markdown logs are
// committed and pushed from.
type Repo struct {
	path       string
	autoCommit bool
	autoPush   bool
}

func New(path string, autoCommit, autoPush bool) *Repo {
	return &Repo{path: path, autoCommit: autoCommit, autoPush: autoPush}
}

// CommitThenPush stages all changes, commits, then pushes, in that
// strict order, failing loudly if either step errors rather than
// silently skipping it — the resolution spec.md §9 gives to the
// otherwise-undocumented commit/push ordering question.
func (r *Repo) CommitThenPush() error {
	if !r.autoCommit && !r.autoPush {
		return nil
	}

	repo, err := git.PlainOpen(r.path)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	if r.autoCommit {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return fmt.Errorf("stage changes: %w", err)
		}

		status, err := wt.Status()
		if err != nil {
			return fmt.Errorf("check worktree status: %w", err)
		}
		if !status.IsClean() {
			_, err := wt.Commit(fmt.Sprintf("hoover: log update %s", time.Now().Format(time.RFC3339)), &git.CommitOptions{
				Author: authorSignature(),
			})
			if err != nil {
				return fmt.Errorf("commit: %w", err)
			}
		}
	}

	if r.autoPush {
		auth, err := resolveAuth()
		if err != nil {
			return fmt.Errorf("resolve push credentials: %w", err)
		}
		err = repo.Push(&git.PushOptions{Auth: auth})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("push: %w", err)
		}
	}

	return nil
}

func authorSignature() *object.Signature {
	return &object.Signature{Name: "hoover", Email: "hoover@localhost", When: time.Now()}
}

// resolveAuth reads a token from GITHUB_TOKEN, GH_TOKEN or GITEA_TOKEN
// per spec.md §6's environment contract.
func resolveAuth() (*http.BasicAuth, error) {
	for _, envVar := range []string{"GITHUB_TOKEN", "GH_TOKEN", "GITEA_TOKEN"} {
		if token := os.Getenv(envVar); token != "" {
			return &http.BasicAuth{Username: "token", Password: token}, nil
		}
	}
	return nil, fmt.Errorf("no forge token found in GITHUB_TOKEN, GH_TOKEN, or GITEA_TOKEN")
}
