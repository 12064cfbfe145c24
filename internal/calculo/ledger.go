package calculo

import "github.com/shopspring/decimal"

// LinhaParcela is one derived ledger row: the gross and net payout of a
// single installment for each recipient. Rows are a pure function of the
// terms and are rebuilt whole whenever the terms change.
type LinhaParcela struct {
	Numero           int
	ValorBase        decimal.Decimal
	ConsultorBruto   decimal.Decimal
	GerenteBruto     decimal.Decimal
	AnjoBruto        decimal.Decimal
	Imposto          decimal.Decimal
	ConsultorLiquido decimal.Decimal
	GerenteLiquido   decimal.Decimal
	AnjoLiquido      decimal.Decimal
	SemRegra         bool
}

// round2 is half-up rounding to cents. decimal.Round rounds half away from
// zero, which is half-up for the non-negative amounts handled here.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// GerarLedger computes the full per-installment payout schedule.
//
// The per-installment base is round2(ValorVenda/TotalParcelas) for every
// installment except the last, which absorbs the rounding remainder so the
// bases sum exactly to ValorVenda. Tax is apportioned to each recipient in
// proportion to their gross share; the residual cent, when rounding leaves
// one, lands on the consultant's net so the three nets always sum exactly to
// grossTotal − tax.
func GerarLedger(t Termos) ([]LinhaParcela, error) {
	if err := t.Validar(); err != nil {
		return nil, err
	}

	n := t.TotalParcelas
	base := round2(t.ValorVenda.Div(decimal.NewFromInt(int64(n))))
	ultima := t.ValorVenda.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))

	linhas := make([]LinhaParcela, 0, n)
	for numero := 1; numero <= n; numero++ {
		valorBase := base
		if numero == n {
			valorBase = ultima
		}

		taxas := ResolverTaxas(numero, t)
		linha := LinhaParcela{
			Numero:         numero,
			ValorBase:      valorBase,
			ConsultorBruto: round2(valorBase.Mul(taxas.Consultor).Div(cem)),
			GerenteBruto:   round2(valorBase.Mul(taxas.Gerente).Div(cem)),
			AnjoBruto:      round2(valorBase.Mul(taxas.Anjo).Div(cem)),
			SemRegra:       taxas.SemRegra,
		}

		brutoTotal := linha.ConsultorBruto.Add(linha.GerenteBruto).Add(linha.AnjoBruto)
		if brutoTotal.IsZero() {
			// Nothing owed on this installment — zero nets, no division.
			linha.Imposto = decimal.Zero
			linhas = append(linhas, linha)
			continue
		}

		linha.Imposto = round2(brutoTotal.Mul(t.TaxaImposto).Div(cem))

		linha.ConsultorLiquido = round2(linha.ConsultorBruto.Sub(
			linha.Imposto.Mul(linha.ConsultorBruto).Div(brutoTotal)))
		linha.GerenteLiquido = round2(linha.GerenteBruto.Sub(
			linha.Imposto.Mul(linha.GerenteBruto).Div(brutoTotal)))
		linha.AnjoLiquido = round2(linha.AnjoBruto.Sub(
			linha.Imposto.Mul(linha.AnjoBruto).Div(brutoTotal)))

		// Rounding correction: residual cents go to the consultant.
		liquidoEsperado := brutoTotal.Sub(linha.Imposto)
		residuo := liquidoEsperado.Sub(
			linha.ConsultorLiquido.Add(linha.GerenteLiquido).Add(linha.AnjoLiquido))
		if !residuo.IsZero() {
			linha.ConsultorLiquido = linha.ConsultorLiquido.Add(residuo)
		}

		linhas = append(linhas, linha)
	}
	return linhas, nil
}

// ParcelasSemRegra lists the installment numbers no custom rule covers.
// Operators use this to detect misconfigured rule sets; it never blocks the
// ledger build.
func ParcelasSemRegra(linhas []LinhaParcela) []int {
	var nums []int
	for _, l := range linhas {
		if l.SemRegra {
			nums = append(nums, l.Numero)
		}
	}
	return nums
}
