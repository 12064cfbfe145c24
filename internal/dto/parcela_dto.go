package dto

// RegistrarPagamentoRequest marks one installment as paid.
type RegistrarPagamentoRequest struct {
	DataPagamento string `json:"data_pagamento" validate:"required"` // YYYY-MM-DD
}

// AtualizarStatusParcelaRequest moves one installment to an arbitrary state.
// DataPagamento is required only when Status is "Pago".
type AtualizarStatusParcelaRequest struct {
	Status        string  `json:"status" validate:"required,oneof=Pendente Pago Atraso Cancelado"`
	DataPagamento *string `json:"data_pagamento"`
}

type ParcelaResponse struct {
	Numero         int     `json:"numero"`
	Status         string  `json:"status"`
	DataVencimento string  `json:"data_vencimento"`
	DataPagamento  *string `json:"data_pagamento,omitempty"`
	Competencia    *string `json:"competencia,omitempty"`
	Retroativo     bool    `json:"retroativo,omitempty"`
}
