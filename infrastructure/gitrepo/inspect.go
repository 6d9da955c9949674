package gitrepo

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	logger "github.com/sirupsen/logrus"
)

// UpstreamRemote is the remote name used for the fork's parent repository.
const UpstreamRemote = "upstream"

// OriginRemote is the conventional remote name of the fork itself.
const OriginRemote = "origin"

// Inspect reads repository metadata through go-git without shelling out.
type Inspect struct {
	repo *git.Repository
	path string
}

// OpenInspect opens the repository at path for inspection.
func OpenInspect(path string) (*Inspect, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", path, err)
	}
	return &Inspect{repo: repo, path: path}, nil
}

// RemoteURL returns the first URL of the named remote, or an empty string
// when the remote does not exist.
func (i *Inspect) RemoteURL(name string) (string, error) {
	remote, err := i.repo.Remote(name)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", nil
		}
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

// EnsureUpstreamRemote makes sure an "upstream" remote pointing at url
// exists, creating it when missing. An existing upstream remote is left
// untouched even if its URL differs (the user's configuration wins) and
// its URL is returned.
func (i *Inspect) EnsureUpstreamRemote(url string) (string, error) {
	existing, err := i.RemoteURL(UpstreamRemote)
	if err != nil {
		return "", err
	}
	if existing != "" {
		if url != "" && existing != url {
			logger.Debugf(
				"upstream remote already set to %s, not overriding with %s",
				existing, url,
			)
		}
		return existing, nil
	}

	if url == "" {
		return "", nil
	}
	_, err = i.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: UpstreamRemote,
		URLs: []string{url},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create upstream remote: %w", err)
	}
	logger.Infof("added upstream remote %s in %s", url, i.path)
	return url, nil
}
