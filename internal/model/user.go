package model

// Role names as stored on users. The fan-out mail fallback and the chat-list
// shaping both branch on these.
const (
	RoleBuyer = "buyer"
	RoleAgent = "agent"
	RoleOwner = "owner"
)

// User is the marketplace identity. UserName is the primary key used across
// chats, messages and presence; profile fields feed summary formatting.
type User struct {
	UserName   string  `json:"user_name"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	EMail      string  `json:"email"`
	Role       string  `json:"role"`
	ProfilePic *string `json:"profile_pic,omitempty"`
}

// FullName joins first and last name, omitting an empty last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
