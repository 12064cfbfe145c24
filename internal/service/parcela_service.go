package service

import (
	"context"
	"errors"
	"time"

	"cotaflow/internal/calculo"
	"cotaflow/internal/config"
	"cotaflow/internal/dto"
	"cotaflow/internal/model"
	"cotaflow/internal/repository"
	"cotaflow/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ParcelaService interface {
	// RegistrarPagamento moves an installment to Pago, storing the payment
	// date and deriving its competence month.
	RegistrarPagamento(ctx context.Context, comissaoID uuid.UUID, numero int, req dto.RegistrarPagamentoRequest) (*dto.ParcelaResponse, error)
	// AtualizarStatus dispatches to the state machine: Pago requires a
	// payment date; Pendente reverts a Pago entry; Atraso only from
	// Pendente; Cancelado from anywhere.
	AtualizarStatus(ctx context.Context, comissaoID uuid.UUID, numero int, req dto.AtualizarStatusParcelaRequest) (*dto.ParcelaResponse, error)
}

type parcelaService struct {
	repo       repository.ComissaoRepository
	dispatcher *worker.Dispatcher
	cfg        *config.Config
}

func NewParcelaService(repo repository.ComissaoRepository, dispatcher *worker.Dispatcher, cfg *config.Config) ParcelaService {
	return &parcelaService{repo: repo, dispatcher: dispatcher, cfg: cfg}
}

func (s *parcelaService) RegistrarPagamento(ctx context.Context, comissaoID uuid.UUID, numero int, req dto.RegistrarPagamentoRequest) (*dto.ParcelaResponse, error) {
	dataPagamento, err := time.Parse(formatoData, req.DataPagamento)
	if err != nil {
		return nil, &calculo.ValidacaoError{Campo: "dataPagamento", Mensagem: "deve estar no formato YYYY-MM-DD"}
	}
	return s.transicionar(ctx, comissaoID, numero, model.ParcelaPago, &dataPagamento)
}

func (s *parcelaService) AtualizarStatus(ctx context.Context, comissaoID uuid.UUID, numero int, req dto.AtualizarStatusParcelaRequest) (*dto.ParcelaResponse, error) {
	var dataPagamento *time.Time
	if req.Status == model.ParcelaPago {
		if req.DataPagamento == nil {
			return nil, &calculo.ValidacaoError{Campo: "dataPagamento", Mensagem: "obrigatória quando status é Pago"}
		}
		d, err := time.Parse(formatoData, *req.DataPagamento)
		if err != nil {
			return nil, &calculo.ValidacaoError{Campo: "dataPagamento", Mensagem: "deve estar no formato YYYY-MM-DD"}
		}
		dataPagamento = &d
	}
	return s.transicionar(ctx, comissaoID, numero, req.Status, dataPagamento)
}

// transicionar applies one state-machine move under the record's optimistic
// lock, re-derives the overall status and fires notifications when the
// record reaches a terminal status.
func (s *parcelaService) transicionar(ctx context.Context, comissaoID uuid.UUID, numero int, destino string, dataPagamento *time.Time) (*dto.ParcelaResponse, error) {
	c, err := s.repo.FindByID(ctx, comissaoID)
	if err != nil {
		return nil, ErrComissaoNaoEncontrada
	}

	var parcela *model.Parcela
	for i := range c.Parcelas {
		if c.Parcelas[i].Numero == numero {
			parcela = &c.Parcelas[i]
			break
		}
	}
	if parcela == nil {
		return nil, ErrParcelaNaoEncontrada
	}

	switch destino {
	case model.ParcelaPago:
		if err := s.marcarPago(ctx, c, parcela, *dataPagamento); err != nil {
			return nil, err
		}
	case model.ParcelaAtraso:
		if err := marcarAtraso(c, parcela); err != nil {
			return nil, err
		}
	case model.ParcelaCancelado:
		cancelar(parcela)
	case model.ParcelaPendente:
		if err := estornar(c, parcela); err != nil {
			return nil, err
		}
	default:
		return nil, &calculo.ValidacaoError{Campo: "status", Mensagem: "deve ser Pendente, Pago, Atraso ou Cancelado"}
	}

	statusAnterior := c.Status
	c.Status = model.DeriveStatus(c.Parcelas)

	esperada := c.Versao
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateParcela(ctx, tx, parcela); err != nil {
			return err
		}
		return s.repo.UpdateVersioned(ctx, tx, c, esperada)
	})
	if txErr != nil {
		if errors.Is(txErr, repository.ErrVersaoDesatualizada) {
			return nil, ErrVersaoConflito
		}
		return nil, txErr
	}

	if c.Status != statusAnterior {
		s.notificarMudancaStatus(ctx, c)
	}

	return parcelaToResponse(parcela), nil
}

// ── state machine moves ──────────────────────────────────────────────────────

func (s *parcelaService) marcarPago(ctx context.Context, c *model.Comissao, p *model.Parcela, dataPagamento time.Time) error {
	if p.Status == model.ParcelaCancelado {
		return &TransicaoInvalidaError{ComissaoID: c.ID, Numero: p.Numero, De: p.Status, Para: model.ParcelaPago}
	}
	if dataPagamento.Before(c.DataVenda) {
		return &DataInvalidaError{ComissaoID: c.ID, Numero: p.Numero,
			Motivo: "anterior à data de registro da venda"}
	}

	// Backdating before the latest recorded payment is a legitimate
	// correction — allowed, but flagged and logged.
	ultima, err := s.repo.UltimaDataPagamento(ctx, c.ID)
	if err != nil {
		return err
	}
	if ultima != nil && dataPagamento.Before(*ultima) {
		p.Retroativo = true
		log.Warn().
			Str("comissao_id", c.ID.String()).
			Int("parcela", p.Numero).
			Time("data_pagamento", dataPagamento).
			Time("ultimo_pagamento", *ultima).
			Msg("pagamento retroativo registrado")
	}

	competencia := calculo.Competencia(dataPagamento, s.diaCorte())
	p.Status = model.ParcelaPago
	p.DataPagamento = &dataPagamento
	p.Competencia = &competencia
	return nil
}

func marcarAtraso(c *model.Comissao, p *model.Parcela) error {
	switch p.Status {
	case model.ParcelaAtraso:
		return nil // idempotent
	case model.ParcelaPendente:
		p.Status = model.ParcelaAtraso
		return nil
	default:
		return &TransicaoInvalidaError{ComissaoID: c.ID, Numero: p.Numero, De: p.Status, Para: model.ParcelaAtraso}
	}
}

func cancelar(p *model.Parcela) {
	p.Status = model.ParcelaCancelado
	p.DataPagamento = nil
	p.Competencia = nil
	p.Retroativo = false
}

func estornar(c *model.Comissao, p *model.Parcela) error {
	if p.Status != model.ParcelaPago {
		return &TransicaoInvalidaError{ComissaoID: c.ID, Numero: p.Numero, De: p.Status, Para: model.ParcelaPendente}
	}
	p.Status = model.ParcelaPendente
	p.DataPagamento = nil
	p.Competencia = nil
	p.Retroativo = false
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *parcelaService) diaCorte() int {
	if s.cfg == nil {
		return calculo.DiaCortePadrao
	}
	return s.cfg.DiaCorteCompetencia
}

// notificarMudancaStatus enqueues webhook + email jobs when a record reaches
// Concluido or Cancelado. Best-effort — failures only log.
func (s *parcelaService) notificarMudancaStatus(ctx context.Context, c *model.Comissao) {
	if s.dispatcher == nil {
		return
	}
	if c.Status != model.StatusConcluido && c.Status != model.StatusCancelado {
		return
	}
	_ = s.dispatcher.EnqueueWebhook(ctx, worker.WebhookJobPayload{
		Evento:     "comissao.status",
		ComissaoID: c.ID.String(),
		Status:     c.Status,
		Cliente:    c.Cliente,
	})
	if s.cfg != nil && s.cfg.AlertEmail != "" {
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: s.cfg.AlertEmail,
			Subject: "Comissão " + c.Status + " — " + c.Cliente,
			Body: "A comissão do cliente " + c.Cliente + " (grupo " + c.Grupo +
				", cota " + c.Cota + ") mudou para o status " + c.Status + ".",
		})
	}
}
