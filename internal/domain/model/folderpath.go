package model

import (
	"fmt"
	"strings"
)

// assetRoot is the top-level folder every upload lands under.
const assetRoot = "og"

// FolderPath identifies where a set of assets is uploaded: og/<Folder> inside
// the Owner/Repo repository.
type FolderPath struct {
	Owner  string
	Repo   string
	Folder string
}

// Validate checks that all three fields are set and that Folder is a single
// path segment.
func (f FolderPath) Validate() error {
	if strings.TrimSpace(f.Owner) == "" || strings.TrimSpace(f.Repo) == "" || strings.TrimSpace(f.Folder) == "" {
		return fmt.Errorf("%w: owner, repository and folder are required", ErrInvalidFolderPath)
	}
	if strings.ContainsAny(f.Folder, `/\`) || f.Folder == "." || strings.Contains(f.Folder, "..") {
		return fmt.Errorf("%w: folder %q must be a single path segment", ErrInvalidFolderPath, f.Folder)
	}
	if strings.ContainsAny(f.Owner, "/ ") || strings.ContainsAny(f.Repo, "/ ") {
		return fmt.Errorf("%w: owner and repository must not contain slashes or spaces", ErrInvalidFolderPath)
	}
	return nil
}

// FullName returns "owner/repo".
func (f FolderPath) FullName() string {
	return f.Owner + "/" + f.Repo
}

// Dir returns the repository-relative folder, e.g. "og/summer".
func (f FolderPath) Dir() string {
	return assetRoot + "/" + f.Folder
}

// AssetPath returns the repository-relative path of a slot's image.
func (f FolderPath) AssetPath(slot AssetSlot) string {
	return f.Dir() + "/" + string(slot) + ".png"
}

// CDNBaseURL returns <cdnBase>/gh/<owner>/<repo>/og/<folder>.
func (f FolderPath) CDNBaseURL(cdnBase string) string {
	return strings.TrimRight(cdnBase, "/") + "/gh/" + f.FullName() + "/" + f.Dir()
}
