package syncer

import (
	"strings"
)

// ParseRemote extracts the owner and repository name from an HTTPS or SSH
// remote URL, e.g. "https://github.com/org/repo.git" or
// "git@gitlab.com:group/project.git".
func ParseRemote(url string) (owner, name string, ok bool) {
	trimmed := strings.TrimSuffix(url, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")

	if at := strings.Index(trimmed, "@"); at >= 0 && strings.Contains(trimmed, ":") && !strings.Contains(trimmed, "://") {
		// SSH form: git@host:owner/repo
		_, path, found := strings.Cut(trimmed[at+1:], ":")
		if !found {
			return "", "", false
		}
		return splitOwnerRepo(path)
	}

	// HTTPS form: scheme://host/owner/repo
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	_, path, found := strings.Cut(trimmed, "/")
	if !found {
		return "", "", false
	}
	return splitOwnerRepo(path)
}

// splitOwnerRepo splits "owner/repo" or "group/subgroup/repo"; everything
// before the last segment is the owner (GitLab subgroups).
func splitOwnerRepo(path string) (string, string, bool) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", false
	}
	return path[:idx], path[idx+1:], true
}
