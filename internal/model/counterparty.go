package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CounterpartyType enum constants
const (
	CounterpartyTypeSupplier = "SUPPLIER"
	CounterpartyTypeCustomer = "CUSTOMER"
	CounterpartyTypeBoth     = "BOTH"
)

// Counterparty represents a supplier or customer of the plant. Supply
// managers pick suppliers from this directory when filling a request.
type Counterparty struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Type          string         `gorm:"type:varchar(20);not null;index" json:"type"` // SUPPLIER, CUSTOMER, BOTH
	INN           string         `gorm:"column:inn;type:varchar(12)" json:"inn"`
	KPP           string         `gorm:"column:kpp;type:varchar(9)" json:"kpp"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	Address       string         `gorm:"type:text" json:"address"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the ID before insert
func (c *Counterparty) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
