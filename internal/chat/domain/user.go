package domain

// User definition job-board user profile, lives in the relational side
type User struct {
	ID     string `gorm:"primaryKey;column:id" json:"id"`
	Name   string `gorm:"column:name" json:"name"`
	Avatar string `gorm:"column:avatar" json:"avatar,omitempty"`
}

// TableName gorm table name
func (User) TableName() string {
	return "users"
}
