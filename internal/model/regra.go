package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegraComissao is an operator-defined rate override for a contiguous range
// of installment numbers. Posicao preserves authoring order: when ranges
// overlap, the rule with the highest Posicao wins.
type RegraComissao struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ComissaoID uuid.UUID `gorm:"type:uuid;index;not null"`
	Posicao    int       `gorm:"not null"`

	ParcelaInicio int `gorm:"not null"`
	ParcelaFim    int `gorm:"not null"`

	TaxaConsultor decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxaGerente   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxaAnjo      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	CreatedAt time.Time
}
