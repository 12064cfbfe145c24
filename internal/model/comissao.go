package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Overall record status, derived from the installment states.
// Status: "EmAndamento" | "Atraso" | "Concluido" | "Cancelado"
const (
	StatusEmAndamento = "EmAndamento"
	StatusAtraso      = "Atraso"
	StatusConcluido   = "Concluido"
	StatusCancelado   = "Cancelado"
)

// Comissao is the aggregate root for one financed sale: identity, recipients,
// financial terms, the custom rate rules and every installment's state.
// The payout ledger is NOT stored here — it is derived from the terms on
// demand (and cached in Redis keyed by Versao).
type Comissao struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	// Sale identity — supplied by the sale-registration collaborator.
	Cliente   string    `gorm:"index;not null"`
	Grupo     string    `gorm:"type:varchar(20)"`
	Cota      string    `gorm:"type:varchar(20)"`
	TipoVenda string    `gorm:"type:varchar(30);index"`
	DataVenda time.Time `gorm:"not null"`

	// Recipients — opaque display names from the team directory.
	Consultor string  `gorm:"index;not null"`
	Gerente   *string `gorm:"index"`
	Anjo      *string `gorm:"index"`

	// Terms — immutable snapshot; editing replaces the whole set and
	// triggers a full ledger rebuild plus installment reconciliation.
	ValorVenda    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalParcelas int             `gorm:"not null"`
	TaxaImposto   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxaConsultor decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxaGerente   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxaAnjo      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	UsaRegras     bool            `gorm:"not null;default:false"`

	Regras   []RegraComissao `gorm:"foreignKey:ComissaoID;constraint:OnDelete:CASCADE"`
	Parcelas []Parcela       `gorm:"foreignKey:ComissaoID;constraint:OnDelete:CASCADE"`

	Status string `gorm:"type:varchar(20);not null;default:'EmAndamento';index"`

	// Versao is the optimistic-lock counter: every terms edit and every
	// installment mutation goes through a WHERE versao = ? guarded update,
	// so two concurrent writers to the same record cannot interleave.
	Versao int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeriveStatus computes the overall status from the installment states.
// Order matters: an all-Cancelado record is Cancelado even though it also
// satisfies "all Pago or Cancelado".
func DeriveStatus(parcelas []Parcela) string {
	if len(parcelas) == 0 {
		return StatusEmAndamento
	}
	todasCanceladas := true
	todasFechadas := true // Pago or Cancelado
	algumPago := false
	algumAtraso := false
	for _, p := range parcelas {
		switch p.Status {
		case ParcelaPago:
			algumPago = true
			todasCanceladas = false
		case ParcelaCancelado:
		case ParcelaAtraso:
			algumAtraso = true
			todasCanceladas = false
			todasFechadas = false
		default:
			todasCanceladas = false
			todasFechadas = false
		}
	}
	switch {
	case todasCanceladas:
		return StatusCancelado
	case todasFechadas && algumPago:
		return StatusConcluido
	case algumAtraso:
		return StatusAtraso
	default:
		return StatusEmAndamento
	}
}
