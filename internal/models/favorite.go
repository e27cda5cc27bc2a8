package models

import "time"

// Favorite records that a user bookmarked a property.
type Favorite struct {
	UserID     string    `gorm:"primaryKey;type:text" json:"userId"`
	PropertyID string    `gorm:"primaryKey;type:uuid;index" json:"propertyId"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Property   *Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM.
func (Favorite) TableName() string {
	return "favorite"
}
