// Package source turns the --repo input of the wiki command into a local
// working directory, cloning it when the input names a remote repository.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jmylchreest/wikidoc/internal/logger"
	"github.com/jmylchreest/wikidoc/pkg/wiki"
)

// ErrUnrecognized is returned for input that is neither a repository
// address nor an existing directory.
var ErrUnrecognized = errors.New("unrecognized repository or path")

// Kind says how a Source is obtained.
type Kind int

const (
	// KindLocal is an existing directory used in place.
	KindLocal Kind = iota
	// KindRemote is a repository that must be cloned.
	KindRemote
)

func (k Kind) String() string {
	if k == KindRemote {
		return "remote"
	}
	return "local"
}

// Source is a classified --repo input.
type Source struct {
	Input string
	Kind  Kind
	// Location is the absolute directory for KindLocal, the clone URL for
	// KindRemote.
	Location string
}

// Classify decides how to obtain input:
//
//   - anything ending in ".git", scp-style "user@host:path" and ssh://,
//     git:// or file:// URLs are cloned as given;
//   - http(s)://host/owner/repo[/...] is cloned from the hosting site's wiki
//     repository, https://host/owner/repo.wiki.git;
//   - an existing directory is used in place.
//
// The http(s) rule assumes the first two path segments are owner and
// repository; other hosting layouts are not recognized.
func Classify(input string) (Source, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return Source{}, fmt.Errorf("%w: empty input", ErrUnrecognized)
	}

	lower := strings.ToLower(in)
	switch {
	case strings.HasSuffix(strings.TrimSuffix(lower, "/"), ".git"),
		isSCPLike(in),
		strings.HasPrefix(lower, "ssh://"),
		strings.HasPrefix(lower, "git://"),
		strings.HasPrefix(lower, "file://"):
		return Source{Input: input, Kind: KindRemote, Location: in}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		wikiURL, err := wikiRepoURL(in)
		if err != nil {
			return Source{}, err
		}
		return Source{Input: input, Kind: KindRemote, Location: wikiURL}, nil
	}

	dir, err := expandHome(in)
	if err != nil {
		return Source{}, err
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Source{}, fmt.Errorf("%w: path does not exist: %s", ErrUnrecognized, dir)
	}
	if !info.IsDir() {
		return Source{}, fmt.Errorf("%w: not a directory: %s", ErrUnrecognized, dir)
	}
	return Source{Input: input, Kind: KindLocal, Location: dir}, nil
}

// wikiRepoURL maps https://host/owner/repo[/anything] to the wiki repository.
func wikiRepoURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid URL %q", ErrUnrecognized, raw)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", fmt.Errorf("%w: expected https://host/owner/repo, got %q", ErrUnrecognized, raw)
	}
	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".wiki")
	return fmt.Sprintf("%s://%s/%s/%s.wiki.git", u.Scheme, u.Host, owner, repo), nil
}

// isSCPLike matches "git@github.com:owner/repo" style addresses.
func isSCPLike(s string) bool {
	at := strings.IndexByte(s, '@')
	colon := strings.IndexByte(s, ':')
	return at > 0 && colon > at && !strings.Contains(s[:colon], "/")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Options controls how a Source becomes a Workspace.
type Options struct {
	Branch   string    // branch to check out; default branch when empty
	Depth    int       // shallow clone depth; 0 clones full history
	Keep     bool      // keep the clone directory on Close
	Progress io.Writer // clone progress output; nil discards it
}

// Workspace is a directory holding the wiki for one run.
type Workspace struct {
	Dir    string
	Source Source
	temp   string
	keep   bool
}

// Open classifies input and, for remote sources, clones into a fresh
// temporary directory. The caller must Close the workspace.
func Open(ctx context.Context, input string, opts Options) (*Workspace, error) {
	src, err := Classify(input)
	if err != nil {
		return nil, err
	}
	if src.Kind == KindLocal {
		logger.Debug("using local wiki directory", "dir", src.Location)
		return &Workspace{Dir: src.Location, Source: src}, nil
	}

	tmp, err := os.MkdirTemp("", "wikidoc-clone-")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}
	ws := &Workspace{Dir: tmp, Source: src, temp: tmp, keep: opts.Keep}

	if err := clone(ctx, src.Location, tmp, opts); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}
	return ws, nil
}

// Close removes a temporary clone unless it was asked to be kept.
func (w *Workspace) Close() error {
	if w.temp == "" {
		return nil
	}
	if w.keep {
		logger.Info("keeping clone directory", "dir", w.temp)
		return nil
	}
	logger.Debug("removing clone directory", "dir", w.temp)
	return os.RemoveAll(w.temp)
}

// Site reports the hosted wiki the workspace came from: the clone address
// for remote sources, the origin remote for local git checkouts.
func (w *Workspace) Site() (wiki.Site, bool) {
	if w.Source.Kind == KindRemote {
		return SiteFromURL(w.Source.Location)
	}
	return LocalSite(w.Dir)
}

// LocalSite derives the hosted wiki from the origin remote of the git
// checkout at dir. It reports false for plain directories.
func LocalSite(dir string) (wiki.Site, bool) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return wiki.Site{}, false
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return wiki.Site{}, false
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return wiki.Site{}, false
	}
	return SiteFromURL(urls[0])
}

// SiteFromURL derives the hosted wiki from a repository address of the form
// host/owner/repo[.wiki][.git], given as an http(s), ssh or git URL or as an
// scp-style address.
func SiteFromURL(raw string) (wiki.Site, bool) {
	raw = strings.TrimSpace(raw)
	var host, path string
	if !strings.Contains(raw, "://") && isSCPLike(raw) {
		at := strings.IndexByte(raw, '@')
		colon := strings.IndexByte(raw, ':')
		host, path = raw[at+1:colon], raw[colon+1:]
	} else {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return wiki.Site{}, false
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "ssh", "git":
		default:
			return wiki.Site{}, false
		}
		host, path = u.Hostname(), u.Path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if host == "" || len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return wiki.Site{}, false
	}
	repo := strings.TrimSuffix(strings.TrimSuffix(segments[1], ".git"), ".wiki")
	return wiki.Site{Host: host, Owner: segments[0], Repo: repo}, true
}

func clone(ctx context.Context, repoURL, dest string, opts Options) error {
	cloneOptions := &git.CloneOptions{URL: repoURL, Progress: opts.Progress}
	if opts.Depth > 0 {
		cloneOptions.Depth = opts.Depth
	}
	if opts.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOptions.SingleBranch = true
	}

	logger.Info("cloning repository", "url", repoURL, "dest", dest)
	repo, err := git.PlainCloneContext(ctx, dest, false, cloneOptions)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	if head, err := repo.Head(); err == nil {
		logger.Debug("repository cloned", "url", repoURL, "commit", head.Hash().String()[:8])
	}
	return nil
}
