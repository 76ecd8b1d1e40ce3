package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Comida          Category = "Comida"
	Transporte      Category = "Transporte"
	Entretenimiento Category = "Entretenimiento"
	Salud           Category = "Salud"
	Educacion       Category = "Educación"
	Vivienda        Category = "Vivienda"
	Servicios       Category = "Servicios"
	Otros           Category = "Otros"
)

type (
	// Category is the fixed expense taxonomy assigned at entry time.
	Category string

	Income struct {
		ID          string
		Amount      Money
		Description string
		Date        time.Time
	}

	Expense struct {
		ID          string
		Amount      Money
		Category    Category
		Description string
		Date        time.Time
	}

	// Reminder is a dated note with an optional amount. Done is the only
	// field that changes after creation; an Amount of zero cents means the
	// reminder carries no amount.
	Reminder struct {
		ID     string
		Title  string
		Date   time.Time
		Amount Money
		Done   bool
	}

	// NewIncome carries a submitted income entry before the store assigns
	// an id and a date.
	NewIncome struct {
		Amount      Money
		Description string
	}

	NewExpense struct {
		Amount      Money
		Category    Category
		Description string
	}

	NewReminder struct {
		Title  string
		Date   time.Time
		Amount Money
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyTitle       = errors.New("empty title")
	ErrInvalidDate      = errors.New("invalid date")
)

// Categories lists the valid expense categories in display order.
func Categories() []Category {
	return []Category{Comida, Transporte, Entretenimiento, Salud, Educacion, Vivienda, Servicios, Otros}
}

func (c Category) Valid() bool {
	switch c {
	case Comida, Transporte, Entretenimiento, Salud, Educacion, Vivienda, Servicios, Otros:
		return true
	}
	return false
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	if len(s) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (n NewIncome) Validate() error {
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	return validateDescription(n.Description)
}

func (n NewExpense) Validate() error {
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	if !n.Category.Valid() {
		return ErrInvalidCategory
	}
	return validateDescription(n.Description)
}

func (n NewReminder) Validate() error {
	if len(strings.TrimSpace(n.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(n.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if n.Date.IsZero() {
		return ErrInvalidDate
	}
	if n.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Toggled returns a copy of the reminder with Done negated. Applying it
// twice restores the original value.
func (r Reminder) Toggled() Reminder {
	r.Done = !r.Done
	return r
}
