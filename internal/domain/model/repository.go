package model

import "time"

// Repository is a GitHub repository that can receive uploaded assets.
type Repository struct {
	ID            int64
	Owner         string
	Name          string
	FullName      string
	HTMLURL       string
	Description   string
	DefaultBranch string
	Visibility    string // "public", "private" or "internal".
	Private       bool
	UpdatedAt     time.Time
}

// IsPublic reports whether the CDN can mirror the repository.
func (r Repository) IsPublic() bool {
	if r.Private {
		return false
	}
	return r.Visibility == "" || r.Visibility == "public"
}
