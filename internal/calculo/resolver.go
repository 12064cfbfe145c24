package calculo

import "github.com/shopspring/decimal"

// Taxas holds the resolved commission percentages for one installment.
// SemRegra marks an installment that no custom rule covers: it earns nothing,
// and the gap is surfaced to operators instead of silently falling back to
// the default rates.
type Taxas struct {
	Consultor decimal.Decimal
	Gerente   decimal.Decimal
	Anjo      decimal.Decimal
	SemRegra  bool
}

// ResolverTaxas returns the rates that apply to installment numero.
//
// With UsaRegras off the three default rates apply to every installment.
// With it on, rules are scanned in authoring order and the LAST rule whose
// range contains numero wins — the most recently added override takes
// precedence when operators enter overlapping ranges.
func ResolverTaxas(numero int, t Termos) Taxas {
	if !t.UsaRegras {
		return Taxas{
			Consultor: t.TaxaConsultor,
			Gerente:   t.TaxaGerente,
			Anjo:      t.TaxaAnjo,
		}
	}

	encontrou := false
	var tx Taxas
	for _, r := range t.Regras {
		if numero >= r.ParcelaInicio && numero <= r.ParcelaFim {
			tx = Taxas{Consultor: r.TaxaConsultor, Gerente: r.TaxaGerente, Anjo: r.TaxaAnjo}
			encontrou = true
		}
	}
	if !encontrou {
		return Taxas{
			Consultor: decimal.Zero,
			Gerente:   decimal.Zero,
			Anjo:      decimal.Zero,
			SemRegra:  true,
		}
	}
	return tx
}
