package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InternalRequest represents an employee's internal purchase request moving
// through the supply -> director -> accountant -> delivery workflow.
// Status writes go exclusively through the workflow transition table; the
// entity is never hard-deleted (REJECTED and DELIVERED are terminal).
type InternalRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_number"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee      *User     `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`

	ItemName string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Unit     string          `gorm:"type:varchar(50);not null" json:"unit"`
	Reason   string          `gorm:"type:text" json:"reason"`

	// Supply step fields, set by the supply manager
	Supplier    string           `gorm:"type:varchar(255)" json:"supplier"`
	SupplierID  *uuid.UUID       `gorm:"type:uuid;index" json:"supplier_id"`
	Price       *decimal.Decimal `gorm:"type:decimal(18,4)" json:"price,omitempty"`
	TotalAmount *decimal.Decimal `gorm:"type:decimal(18,4)" json:"total_amount,omitempty"` // price * quantity

	Status             string `gorm:"type:varchar(30);not null;default:'NEW';index" json:"status"`
	DirectorDecision   string `gorm:"type:text" json:"director_decision"`
	AccountantApproved bool   `gorm:"default:false" json:"accountant_approved"`
	ReceiverConfirmed  bool   `gorm:"default:false" json:"receiver_confirmed"`

	History []RequestHistory `gorm:"foreignKey:RequestID" json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the ID before insert
func (r *InternalRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RequestHistory is one entry of a request's append-only audit trail.
// Rows are only ever inserted, in the same transaction as the status change.
type RequestHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	Step      string     `gorm:"type:varchar(100);not null" json:"step"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (h *RequestHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
