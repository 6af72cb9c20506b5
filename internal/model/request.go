package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus constants
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ReasonDirectAssignment marks requests synthesized by an admin assignment
const ReasonDirectAssignment = "Admin Direct Assignment"

// AssetRequest represents an employee's request for stock from the catalog.
// Status moves strictly forward: pending -> approved/rejected. Returned is a
// one-way flag and only meaningful once the request is approved.
type AssetRequest struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee   *User      `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int        `gorm:"type:int;not null" json:"quantity"`
	Reason     string     `gorm:"type:text;not null" json:"reason"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver   *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt *time.Time `json:"approved_at"`
	Returned   bool       `gorm:"not null;default:false;index" json:"returned"`
	ReturnedAt *time.Time `json:"returned_at"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *AssetRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
