package model

// Identity is the GitHub account a token authenticates as.
type Identity struct {
	Login  string
	Name   string
	Scopes []string // From X-OAuth-Scopes; nil for fine-grained tokens, which do not report scopes.
}

// CanWriteContents reports whether the token scopes allow writing repository
// contents. Fine-grained tokens report no scopes, so they are given the benefit
// of the doubt and fail later on the first write instead.
func (i Identity) CanWriteContents() bool {
	if i.Scopes == nil {
		return true
	}
	for _, s := range i.Scopes {
		if s == "repo" || s == "public_repo" {
			return true
		}
	}
	return false
}
