package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrComissaoNaoEncontrada is returned when the record id does not exist.
var ErrComissaoNaoEncontrada = errors.New("comissão não encontrada")

// ErrParcelaNaoEncontrada is returned when the installment number is outside
// the record's current range.
var ErrParcelaNaoEncontrada = errors.New("parcela não encontrada")

// ErrVersaoConflito signals an optimistic-lock mismatch: the record changed
// between the caller's read and write. Reload and retry.
var ErrVersaoConflito = errors.New("a comissão foi modificada por outra operação; recarregue e tente novamente")

// TransicaoInvalidaError reports a disallowed installment state move, with
// enough context for the UI to highlight the exact installment.
type TransicaoInvalidaError struct {
	ComissaoID uuid.UUID
	Numero     int
	De         string
	Para       string
}

func (e *TransicaoInvalidaError) Error() string {
	return fmt.Sprintf("transição inválida na parcela %d da comissão %s: %s → %s",
		e.Numero, e.ComissaoID, e.De, e.Para)
}

// DataInvalidaError reports a payment date the engine rejects outright
// (e.g. before the sale's registration date).
type DataInvalidaError struct {
	ComissaoID uuid.UUID
	Numero     int
	Motivo     string
}

func (e *DataInvalidaError) Error() string {
	return fmt.Sprintf("data de pagamento inválida na parcela %d da comissão %s: %s",
		e.Numero, e.ComissaoID, e.Motivo)
}
