package dto

import "github.com/shopspring/decimal"

// RegraRequest is one custom rate-override entry. Order in the slice is
// authoring order and decides precedence on overlap.
type RegraRequest struct {
	ParcelaInicio int             `json:"parcela_inicio" validate:"required,min=1"`
	ParcelaFim    int             `json:"parcela_fim" validate:"required,min=1"`
	TaxaConsultor decimal.Decimal `json:"taxa_consultor" validate:"min=0,max=100"`
	TaxaGerente   decimal.Decimal `json:"taxa_gerente" validate:"min=0,max=100"`
	TaxaAnjo      decimal.Decimal `json:"taxa_anjo" validate:"min=0,max=100"`
}

// TermosRequest carries the financial terms of a sale. Validation beyond the
// tags (rule range ordering, etc.) happens in calculo.Termos.Validar, which
// is the single source of truth for term constraints.
type TermosRequest struct {
	ValorVenda    decimal.Decimal `json:"valor_venda" validate:"required,gt=0"`
	TotalParcelas int             `json:"total_parcelas" validate:"required,min=1"`
	TaxaImposto   decimal.Decimal `json:"taxa_imposto" validate:"min=0,max=100"`
	TaxaConsultor decimal.Decimal `json:"taxa_consultor" validate:"min=0,max=100"`
	TaxaGerente   decimal.Decimal `json:"taxa_gerente" validate:"min=0,max=100"`
	TaxaAnjo      decimal.Decimal `json:"taxa_anjo" validate:"min=0,max=100"`
	UsaRegras     bool            `json:"usa_regras"`
	Regras        []RegraRequest  `json:"regras" validate:"dive"`
}

// CriarComissaoRequest registers a new sale and its commission record.
type CriarComissaoRequest struct {
	Cliente   string  `json:"cliente" validate:"required"`
	Grupo     string  `json:"grupo"`
	Cota      string  `json:"cota"`
	TipoVenda string  `json:"tipo_venda"`
	DataVenda string  `json:"data_venda" validate:"required"` // YYYY-MM-DD
	Consultor string  `json:"consultor" validate:"required"`
	Gerente   *string `json:"gerente"`
	Anjo      *string `json:"anjo"`

	Termos TermosRequest `json:"termos" validate:"required"`
}

// AtualizarTermosRequest replaces a record's terms. Versao must match the
// record's current version — a mismatch means someone edited concurrently.
type AtualizarTermosRequest struct {
	Termos TermosRequest `json:"termos" validate:"required"`
	Versao int           `json:"versao" validate:"required,min=1"`
}

// ComissaoFilter narrows the record listing.
type ComissaoFilter struct {
	Consultor string `form:"consultor"`
	Cliente   string `form:"cliente"`
	TipoVenda string `form:"tipo_venda"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type RegraResponse struct {
	ParcelaInicio int             `json:"parcela_inicio"`
	ParcelaFim    int             `json:"parcela_fim"`
	TaxaConsultor decimal.Decimal `json:"taxa_consultor"`
	TaxaGerente   decimal.Decimal `json:"taxa_gerente"`
	TaxaAnjo      decimal.Decimal `json:"taxa_anjo"`
}

type ComissaoResponse struct {
	ID        string  `json:"id"`
	Cliente   string  `json:"cliente"`
	Grupo     string  `json:"grupo,omitempty"`
	Cota      string  `json:"cota,omitempty"`
	TipoVenda string  `json:"tipo_venda,omitempty"`
	DataVenda string  `json:"data_venda"`
	Consultor string  `json:"consultor"`
	Gerente   *string `json:"gerente,omitempty"`
	Anjo      *string `json:"anjo,omitempty"`

	ValorVenda    decimal.Decimal `json:"valor_venda"`
	TotalParcelas int             `json:"total_parcelas"`
	TaxaImposto   decimal.Decimal `json:"taxa_imposto"`
	TaxaConsultor decimal.Decimal `json:"taxa_consultor"`
	TaxaGerente   decimal.Decimal `json:"taxa_gerente"`
	TaxaAnjo      decimal.Decimal `json:"taxa_anjo"`
	UsaRegras     bool            `json:"usa_regras"`
	Regras        []RegraResponse `json:"regras,omitempty"`

	Status string `json:"status"`
	Versao int    `json:"versao"`

	// ParcelasSemRegra lists installments no custom rule covers — the
	// operator-facing gap diagnostic.
	ParcelasSemRegra []int              `json:"parcelas_sem_regra,omitempty"`
	Parcelas         []ParcelaResponse  `json:"parcelas,omitempty"`

	CreatedAt string `json:"created_at"`
}

type ComissaoListResponse struct {
	Data  []ComissaoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// LinhaLedgerResponse is one derived payout row of the ledger endpoint.
type LinhaLedgerResponse struct {
	Numero           int             `json:"numero"`
	ValorBase        decimal.Decimal `json:"valor_base"`
	ConsultorBruto   decimal.Decimal `json:"consultor_bruto"`
	GerenteBruto     decimal.Decimal `json:"gerente_bruto"`
	AnjoBruto        decimal.Decimal `json:"anjo_bruto"`
	Imposto          decimal.Decimal `json:"imposto"`
	ConsultorLiquido decimal.Decimal `json:"consultor_liquido"`
	GerenteLiquido   decimal.Decimal `json:"gerente_liquido"`
	AnjoLiquido      decimal.Decimal `json:"anjo_liquido"`
	SemRegra         bool            `json:"sem_regra,omitempty"`
}
