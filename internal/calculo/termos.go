// Package calculo contains the pure commission math: rate resolution per
// installment, ledger generation and competence-month derivation. Nothing in
// this package touches the database or blocks — services call into it and
// persist the results.
package calculo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var cem = decimal.NewFromInt(100)

// Regra overrides the default rates for installments whose number falls in
// [ParcelaInicio, ParcelaFim] inclusive. Ranges may overlap or leave gaps;
// see ResolverTaxas for the resolution policy.
type Regra struct {
	ParcelaInicio int
	ParcelaFim    int
	TaxaConsultor decimal.Decimal
	TaxaGerente   decimal.Decimal
	TaxaAnjo      decimal.Decimal
}

// Termos is the immutable financial snapshot of a sale used to build its
// ledger. Replacing the terms on a record triggers a full rebuild.
type Termos struct {
	ValorVenda    decimal.Decimal
	TotalParcelas int
	// TaxaImposto is deducted from the combined gross commission per installment.
	TaxaImposto   decimal.Decimal
	TaxaConsultor decimal.Decimal
	TaxaGerente   decimal.Decimal
	TaxaAnjo      decimal.Decimal
	UsaRegras     bool
	// Regras in authoring order — later entries win on overlap.
	Regras []Regra
}

// ValidacaoError reports a single malformed field. The engine never clamps or
// auto-corrects input; it rejects and names the offending field.
type ValidacaoError struct {
	Campo    string
	Mensagem string
}

func (e *ValidacaoError) Error() string {
	return fmt.Sprintf("termos inválidos: %s %s", e.Campo, e.Mensagem)
}

func taxaForaDaFaixa(t decimal.Decimal) bool {
	return t.IsNegative() || t.GreaterThan(cem)
}

// Validar checks every structural constraint on the terms. It returns the
// first violation found as a *ValidacaoError.
func (t Termos) Validar() error {
	if !t.ValorVenda.IsPositive() {
		return &ValidacaoError{Campo: "valorVenda", Mensagem: "deve ser maior que zero"}
	}
	if t.TotalParcelas < 1 {
		return &ValidacaoError{Campo: "totalParcelas", Mensagem: "deve ser no mínimo 1"}
	}
	if taxaForaDaFaixa(t.TaxaImposto) {
		return &ValidacaoError{Campo: "taxaImposto", Mensagem: "deve estar entre 0 e 100"}
	}
	for campo, taxa := range map[string]decimal.Decimal{
		"taxaConsultor": t.TaxaConsultor,
		"taxaGerente":   t.TaxaGerente,
		"taxaAnjo":      t.TaxaAnjo,
	} {
		if taxaForaDaFaixa(taxa) {
			return &ValidacaoError{Campo: campo, Mensagem: "deve estar entre 0 e 100"}
		}
	}
	for i, r := range t.Regras {
		prefixo := fmt.Sprintf("regras[%d].", i)
		if r.ParcelaInicio < 1 {
			return &ValidacaoError{Campo: prefixo + "parcelaInicio", Mensagem: "deve ser no mínimo 1"}
		}
		if r.ParcelaFim < r.ParcelaInicio {
			return &ValidacaoError{Campo: prefixo + "parcelaFim", Mensagem: "deve ser maior ou igual a parcelaInicio"}
		}
		for campo, taxa := range map[string]decimal.Decimal{
			"taxaConsultor": r.TaxaConsultor,
			"taxaGerente":   r.TaxaGerente,
			"taxaAnjo":      r.TaxaAnjo,
		} {
			if taxaForaDaFaixa(taxa) {
				return &ValidacaoError{Campo: prefixo + campo, Mensagem: "deve estar entre 0 e 100"}
			}
		}
	}
	return nil
}
