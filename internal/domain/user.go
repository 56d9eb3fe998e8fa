package domain

// AuthUser is the public view of the authenticated admin.
type AuthUser struct {
	Name string `json:"name"`
	Role string `json:"role"`
}
