package models

import (
	"time"

	"github.com/gocql/gocql"
)

// MenuItem est un plat proposé par un restaurant
type MenuItem struct {
	ID                 gocql.UUID    `json:"id"`
	VendorID           string        `json:"vendorId"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Category           string        `json:"category,omitempty"`
	Price              float64       `json:"price"`
	Available          bool          `json:"available"`
	InstructionOptions []Instruction `json:"instructionOptions,omitempty"`
	ImageURL           string        `json:"imageUrl,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// FindInstruction retrouve une option par son nom
func (m *MenuItem) FindInstruction(name string) (Instruction, bool) {
	for _, opt := range m.InstructionOptions {
		if opt.Name == name {
			return opt, true
		}
	}
	return Instruction{}, false
}
