package goCrud

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/goCrud/session"
)

// Tree names. Each entity kind lives in its own tree; the user tree name is
// also the name of the session identity cookie.
const (
	treeUser      = "user"
	treeGroup     = "group"
	treeAuth      = "auth"
	treeUserEmail = "user_email"
)

// SessionCookieName is the name of the session identity cookie.
const SessionCookieName = treeUser

/*
====================================
RECORDS
====================================
*/

// User is a stored account. Password only ever holds an Argon2id PHC hash.
type User struct {
	Nid      string  `json:"nid"`
	Nickname string  `json:"nickname"`
	Name     *string `json:"name,omitempty"`
	Surname  *string `json:"surname,omitempty"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	u.Name = cloneString(u.Name)
	u.Surname = cloneString(u.Surname)
	return u
}

// View returns the public projection of u.
func (u User) View() UserView {
	return UserView{
		Nid:      u.Nid,
		Nickname: u.Nickname,
		Name:     cloneString(u.Name),
		Surname:  cloneString(u.Surname),
	}
}

// Group is a stored group. UserNid is the owner; Members holds each member
// nid at most once, the owner first.
type Group struct {
	Nid         string   `json:"nid"`
	UserNid     string   `json:"user_nid"`
	Members     []string `json:"members"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
}

// Clone returns a deep copy of g.
func (g Group) Clone() Group {
	g.Members = slices.Clone(g.Members)
	g.Description = cloneString(g.Description)
	return g
}

// HasMember reports whether nid is a member of g.
func (g Group) HasMember(nid string) bool {
	return slices.Contains(g.Members, nid)
}

// View returns the public projection of g; the owner nid is not exposed.
func (g Group) View() GroupView {
	members := slices.Clone(g.Members)
	if members == nil {
		members = []string{}
	}
	return GroupView{
		Nid:         g.Nid,
		Name:        g.Name,
		Description: cloneString(g.Description),
		Members:     members,
	}
}

// GrantKind says what a [Grant] applies to.
type GrantKind string

const (
	// GrantType applies to every record of a tree for the listed users and
	// groups.
	GrantType GrantKind = "type"
	// GrantAsset applies to a single record of a tree.
	GrantAsset GrantKind = "asset"
)

// Operation is one of the four record operations a grant can allow.
type Operation uint8

const (
	OpCreate Operation = iota + 1
	OpRead
	OpUpdate
	OpDelete
)

// Capabilities lists the operations a grant allows.
type Capabilities struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether op is permitted.
func (c Capabilities) Allows(op Operation) bool {
	switch op {
	case OpCreate:
		return c.Create
	case OpRead:
		return c.Read
	case OpUpdate:
		return c.Update
	case OpDelete:
		return c.Delete
	default:
		return false
	}
}

// Grant is a stored authorization rule. Capabilities are payload only; the
// engine stores and returns them but does not enforce them.
type Grant struct {
	Nid          string       `json:"nid"`
	Kind         GrantKind    `json:"kind"`
	Tree         string       `json:"tree"`
	AssetNid     string       `json:"asset_nid,omitempty"`
	UserNids     []string     `json:"user_nids,omitempty"`
	GroupNids    []string     `json:"group_nids,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Clone returns a deep copy of g.
func (g Grant) Clone() Grant {
	g.UserNids = slices.Clone(g.UserNids)
	g.GroupNids = slices.Clone(g.GroupNids)
	return g
}

// emailClaim is the value stored in the email reservation tree.
type emailClaim struct {
	Nid string `json:"nid"`
}

func (c emailClaim) Clone() emailClaim { return c }

/*
====================================
COMMANDS
====================================
*/

// UserCreate is the input of [Engine.CreateUser].
type UserCreate struct {
	Nickname string
	Name     *string
	Surname  *string
	Email    string
	Password string
}

// UserLogin is the input of [Engine.Login].
type UserLogin struct {
	Email    string
	Password string
}

// UserUpdate is the input of [Engine.UpdateUser]. Nil fields keep their
// stored value. Password must hold the current password whenever NewEmail
// or NewPassword is set.
type UserUpdate struct {
	CSRFToken   string
	Nickname    *string
	Name        *string
	Surname     *string
	NewEmail    *string
	NewPassword *string
	Password    *string
}

// UserDelete is the input of [Engine.DeleteUser].
type UserDelete struct {
	CSRFToken string
	Password  string
}

// UserQuery selects one user by Nid or, when Nid is empty, by Email.
type UserQuery struct {
	Nid   string
	Email string
}

// GroupCreate is the input of [Engine.CreateGroup].
type GroupCreate struct {
	Name        string
	Description *string
}

// GroupMember is the input of [Engine.AddMember].
type GroupMember struct {
	GroupNid string
	UserNid  string
}

// GroupDelete is the input of [Engine.DeleteGroup].
type GroupDelete struct {
	CSRFToken string
	Nid       string
}

// GrantInput is the input of [Engine.CreateGrant].
type GrantInput struct {
	Kind         GrantKind
	Tree         string
	AssetNid     string
	UserNids     []string
	GroupNids    []string
	Capabilities Capabilities
}

/*
====================================
RESULTS
====================================
*/

// UserView is the public projection of a [User]; it never carries the
// email or the password hash.
type UserView struct {
	Nid      string  `json:"nid"`
	Nickname string  `json:"nickname"`
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
}

// GroupView is the public projection of a [Group].
type GroupView struct {
	Nid         string   `json:"nid"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Members     []string `json:"members"`
}

// LoginResult is returned by [Engine.Login]. Cookie binds the session
// identity and must be applied by the transport.
type LoginResult struct {
	User   UserView
	Cookie session.Mutation
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// normalizeEmail is the reservation key for an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validText reports whether every string is valid UTF-8. Stored records are
// compared by their encoding and codecs rewrite invalid sequences, so such
// text is refused at the door.
func validText(ss ...string) bool {
	for _, s := range ss {
		if !utf8.ValidString(s) {
			return false
		}
	}
	return true
}

// deref returns *s, or "" for nil.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
