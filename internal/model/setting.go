package model

import "time"

// Setting is a free-form key/value preference kept alongside the ledger.
type Setting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
