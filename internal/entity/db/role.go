package db

// Role 是授权标签，按名称唯一。
type Role struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"column:name;type:varchar(50);uniqueIndex;not null" json:"name"`
}

// TableName 指定表名。
func (Role) TableName() string {
	return "roles"
}
