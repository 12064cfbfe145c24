package worker

// atraso_cron.go
// Background goroutine that periodically scans for Pendente installments
// whose due date has passed and flips them to Atraso, re-deriving the
// record status. Conflicting concurrent edits are skipped — the next
// tick picks the record up again.

import (
	"context"
	"time"

	"cotaflow/internal/model"
	"cotaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const atrasoBatchSize = 50

// AtrasoCronConfig holds the dependencies for the overdue-scan goroutine.
type AtrasoCronConfig struct {
	Repo       repository.ComissaoRepository
	Dispatcher *Dispatcher
	Interval   time.Duration
	AlertEmail string
}

// StartAtrasoCron launches the scan loop. It respects the context for
// graceful shutdown.
func StartAtrasoCron(ctx context.Context, cfg AtrasoCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("atraso_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("atraso_cron: shutting down")
				return
			case <-ticker.C:
				scanVencidas(ctx, cfg)
			}
		}
	}()
}

func scanVencidas(ctx context.Context, cfg AtrasoCronConfig) {
	agora := time.Now()
	vencidas, err := cfg.Repo.ListParcelasVencidas(ctx, agora, atrasoBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("atraso_cron: failed to query overdue installments")
		return
	}
	if len(vencidas) == 0 {
		return
	}

	porComissao := map[uuid.UUID][]int{}
	for _, p := range vencidas {
		porComissao[p.ComissaoID] = append(porComissao[p.ComissaoID], p.Numero)
	}
	log.Info().
		Int("parcelas", len(vencidas)).
		Int("comissoes", len(porComissao)).
		Msg("atraso_cron: flagging overdue installments")

	for comissaoID, numeros := range porComissao {
		if err := flagComissao(ctx, cfg, comissaoID, numeros, agora); err != nil {
			log.Warn().Err(err).Str("comissao_id", comissaoID.String()).
				Msg("atraso_cron: skipped record, will retry next tick")
		}
	}
}

func flagComissao(ctx context.Context, cfg AtrasoCronConfig, comissaoID uuid.UUID, numeros []int, agora time.Time) error {
	c, err := cfg.Repo.FindByID(ctx, comissaoID)
	if err != nil {
		return err
	}

	alvo := map[int]bool{}
	for _, n := range numeros {
		alvo[n] = true
	}

	var mudadas []*model.Parcela
	for i := range c.Parcelas {
		p := &c.Parcelas[i]
		// Re-check against the fresh row: a payment may have landed
		// between the scan query and this load.
		if alvo[p.Numero] && p.Status == model.ParcelaPendente && p.DataVencimento.Before(agora) {
			p.Status = model.ParcelaAtraso
			mudadas = append(mudadas, p)
		}
	}
	if len(mudadas) == 0 {
		return nil
	}

	statusAnterior := c.Status
	c.Status = model.DeriveStatus(c.Parcelas)
	esperada := c.Versao

	aplicar := func(tx *gorm.DB) error {
		for _, p := range mudadas {
			if err := cfg.Repo.UpdateParcela(ctx, tx, p); err != nil {
				return err
			}
		}
		return cfg.Repo.UpdateVersioned(ctx, tx, c, esperada)
	}
	if db := cfg.Repo.DB(); db != nil {
		err = db.Transaction(aplicar)
	} else {
		err = aplicar(nil)
	}
	if err != nil {
		return err
	}

	if c.Status == model.StatusAtraso && statusAnterior != model.StatusAtraso &&
		cfg.Dispatcher != nil && cfg.AlertEmail != "" {
		_ = cfg.Dispatcher.EnqueueEmail(ctx, EmailJobPayload{
			ToEmail: cfg.AlertEmail,
			Subject: "Comissão em atraso — " + c.Cliente,
			Body: "A comissão do cliente " + c.Cliente + " (grupo " + c.Grupo +
				", cota " + c.Cota + ") possui parcelas vencidas sem pagamento.",
		})
	}
	return nil
}
