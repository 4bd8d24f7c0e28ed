package dto

// UserView is the read-only projection of a user returned to clients.
type UserView struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar"`
}

// UserListQuery selects and orders users.
type UserListQuery struct {
	Dir  string `json:"dir" form:"dir" query:"dir"`
	Role string `json:"role" form:"role" query:"role"`
}

// UserCreateRequest is the payload for creating a user.
type UserCreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// UserUpdateRequest is the payload for renaming a user.
type UserUpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// AvatarUploadRequest uploads an avatar as an inline data URL or bare base64.
type AvatarUploadRequest struct {
	Image    string `json:"image" binding:"required"`
	FileName string `json:"file_name"`
}
