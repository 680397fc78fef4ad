package models

const (
	RoleVisitor     = "visitor"
	RoleGuide       = "guide"
	RoleAdvisor     = "advisor"
	RoleCoordinator = "coordinator"
	RoleDirector    = "director"
)

// User is an identity record owned by the directory. The messaging core
// references users by ID only and never mutates them.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}
