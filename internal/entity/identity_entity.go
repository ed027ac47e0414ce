package entity

type Tier string

const (
	TierAdmin        Tier = "admin"
	TierDemo         Tier = "demo"
	TierUnrestricted Tier = "unrestricted"
)

// Identity is the verified user derived from the OAuth2 identity token.
// It is fixed for the lifetime of the session that owns it.
type Identity struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Picture  string `json:"picture,omitempty"`
	Tier     Tier   `json:"tier"`
}

func (i Identity) IsAdmin() bool {
	return i.Tier == TierAdmin
}
