package converter

import (
	"authserver/internal/entity/db"
	"authserver/internal/entity/dto"
)

// UserToView converts a db.User to dto.UserView using the given avatar URL.
func UserToView(u *db.User, avatarURL string) dto.UserView {
	if u == nil {
		return dto.UserView{}
	}
	return dto.UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: avatarURL,
	}
}
