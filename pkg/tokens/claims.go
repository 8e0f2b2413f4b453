package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Permission is one (resource, action) grant, e.g. policy:publish.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (p Permission) String() string { return p.Resource + ":" + p.Action }

// Claims is implemented only by *AccessClaims and *RefreshClaims.
type Claims interface {
	jwt.Claims
	Kind() Kind
	registered() *jwt.RegisteredClaims
	stamp()
}

type AccessClaims struct {
	UserID      string       `json:"userId"`
	TenantID    string       `json:"tenantId"`
	Email       string       `json:"email"`
	Permissions []Permission `json:"permissions,omitempty"`
	Type        Kind         `json:"type"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Kind() Kind                        { return KindAccess }
func (c *AccessClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }
func (c *AccessClaims) stamp()                            { c.Type = KindAccess }

// Has reports whether the claim set grants resource:action.
func (c *AccessClaims) Has(resource, action string) bool {
	for _, p := range c.Permissions {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

type RefreshClaims struct {
	UserID string `json:"userId"`
	Type   Kind   `json:"type"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) Kind() Kind                        { return KindRefresh }
func (c *RefreshClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }
func (c *RefreshClaims) stamp()                            { c.Type = KindRefresh }

// wireClaims is the superset decoded before the variant is chosen.
type wireClaims struct {
	UserID      string       `json:"userId"`
	TenantID    string       `json:"tenantId"`
	Email       string       `json:"email"`
	Permissions []Permission `json:"permissions,omitempty"`
	Type        Kind         `json:"type"`
	jwt.RegisteredClaims
}
