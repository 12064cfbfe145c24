package dto

import "github.com/shopspring/decimal"

// RelatorioFilter narrows the competence report. All fields optional;
// Destinatario matches any of the three recipient names on a record.
type RelatorioFilter struct {
	Competencia  string `form:"competencia"`  // YYYY-MM
	Destinatario string `form:"destinatario"` // recipient display name
	DataInicio   string `form:"data_inicio"`  // YYYY-MM-DD, on DataPagamento
	DataFim      string `form:"data_fim"`     // YYYY-MM-DD, inclusive
	TipoVenda    string `form:"tipo_venda"`
}

// TotaisResponse breaks the net payout down by recipient role.
type TotaisResponse struct {
	Consultor decimal.Decimal `json:"consultor"`
	Gerente   decimal.Decimal `json:"gerente"`
	Anjo      decimal.Decimal `json:"anjo"`
	Total     decimal.Decimal `json:"total"`
}

// CompetenciaBucket is one month's roll-up. TotalVendido sums the base value
// of the installments paid into this bucket, not whole sale values.
type CompetenciaBucket struct {
	Competencia  string          `json:"competencia"`
	Parcelas     int             `json:"parcelas"`
	TotalVendido decimal.Decimal `json:"total_vendido"`
	Totais       TotaisResponse  `json:"totais"`
}

type RelatorioResponse struct {
	TotalVendido decimal.Decimal     `json:"total_vendido"`
	Totais       TotaisResponse      `json:"totais"`
	PorMes       []CompetenciaBucket `json:"por_mes"`
}
