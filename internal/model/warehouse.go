package model

type Warehouse struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
}
