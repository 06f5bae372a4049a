package model

import "time"

// Dashboard is a saved, named collection of charts.
type Dashboard struct {
	ID        string           `json:"id" gorm:"primaryKey;size:36"`
	Name      string           `json:"name" gorm:"size:255;not null"`
	SessionID string           `json:"sessionId,omitempty" gorm:"size:36;index"`
	Charts    []DashboardChart `json:"charts" gorm:"foreignKey:DashboardID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type DashboardChart struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DashboardID string    `json:"-" gorm:"size:36;index;not null"`
	Position    int       `json:"position"`
	Spec        ChartSpec `json:"spec" gorm:"serializer:json;type:json"`
	CreatedAt   time.Time `json:"createdAt"`
}
