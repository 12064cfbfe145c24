package model

import (
	"time"

	"github.com/google/uuid"
)

// Installment payment states.
// Status: "Pendente" | "Pago" | "Atraso" | "Cancelado"
const (
	ParcelaPendente  = "Pendente"
	ParcelaPago      = "Pago"
	ParcelaAtraso    = "Atraso"
	ParcelaCancelado = "Cancelado"
)

// Parcela is the mutable state of one installment of a Comissao. Exactly one
// row exists per installment number in [1, TotalParcelas]; shrinking the
// terms drops the rows above the new count, growing creates new Pendente rows.
type Parcela struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ComissaoID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comissao_numero"`
	Numero     int       `gorm:"not null;uniqueIndex:idx_comissao_numero"`

	Status string `gorm:"type:varchar(20);not null;default:'Pendente';index"`

	// DataVencimento drives the overdue scan: a Pendente installment past
	// this date is flipped to Atraso.
	DataVencimento time.Time  `gorm:"not null"`
	DataPagamento  *time.Time `gorm:"index"`

	// Competencia is derived from DataPagamento at payment time (YYYY-MM);
	// nil whenever the installment is not Pago.
	Competencia *string `gorm:"type:varchar(7);index"`

	// Retroativo flags a payment recorded with a date earlier than the
	// record's latest previously recorded payment — allowed, but surfaced.
	Retroativo bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
