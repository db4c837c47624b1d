package types

// NavEntry is one destination of the side navigation. Title is a translation
// key until the entry has been localized.
type NavEntry struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Icon  string `json:"icon,omitempty"`
}

// Role is an opaque capability tag carried on the authenticated session.
type Role = string

const (
	RoleAdmin      Role = "admin"
	RoleInfluencer Role = "influencer"
)
