package repository

import (
	"context"
	"errors"
	"time"

	"cotaflow/internal/dto"
	"cotaflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersaoDesatualizada is returned by the versioned updates when the
// record changed under the caller. The caller must reload and retry.
var ErrVersaoDesatualizada = errors.New("comissão modificada concorrentemente")

type ComissaoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, c *model.Comissao) error
	// FindByID preloads rules (authoring order) and installments (by number).
	FindByID(ctx context.Context, id uuid.UUID) (*model.Comissao, error)
	List(ctx context.Context, filter dto.ComissaoFilter) ([]model.Comissao, int64, error)
	// ListParaRelatorio loads the full aggregates the report scan needs.
	ListParaRelatorio(ctx context.Context, filter dto.RelatorioFilter) ([]model.Comissao, error)

	// UpdateVersioned persists the record's terms/status fields guarded by
	// WHERE versao = esperada, bumping versao on success. Returns
	// ErrVersaoDesatualizada when no row matched.
	UpdateVersioned(ctx context.Context, tx *gorm.DB, c *model.Comissao, esperada int) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error

	ReplaceRegras(ctx context.Context, tx *gorm.DB, comissaoID uuid.UUID, regras []model.RegraComissao) error
	CreateParcelas(ctx context.Context, tx *gorm.DB, parcelas []model.Parcela) error
	DeleteParcelasAcima(ctx context.Context, tx *gorm.DB, comissaoID uuid.UUID, limite int) error
	FindParcela(ctx context.Context, comissaoID uuid.UUID, numero int) (*model.Parcela, error)
	UpdateParcela(ctx context.Context, tx *gorm.DB, p *model.Parcela) error
	// UltimaDataPagamento returns the most recent recorded payment date on
	// the record, or nil when nothing was paid yet.
	UltimaDataPagamento(ctx context.Context, comissaoID uuid.UUID) (*time.Time, error)
	// ListParcelasVencidas returns Pendente installments due before ref,
	// for the overdue scan.
	ListParcelasVencidas(ctx context.Context, ref time.Time, limit int) ([]model.Parcela, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type comissaoRepo struct{ db *gorm.DB }

func NewComissaoRepository(db *gorm.DB) ComissaoRepository { return &comissaoRepo{db: db} }

func (r *comissaoRepo) DB() *gorm.DB { return r.db }

func (r *comissaoRepo) Create(ctx context.Context, tx *gorm.DB, c *model.Comissao) error {
	return tx.WithContext(ctx).Create(c).Error
}

func (r *comissaoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Comissao, error) {
	var c model.Comissao
	err := r.db.WithContext(ctx).
		Preload("Regras", func(db *gorm.DB) *gorm.DB { return db.Order("posicao ASC") }).
		Preload("Parcelas", func(db *gorm.DB) *gorm.DB { return db.Order("numero ASC") }).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *comissaoRepo) List(ctx context.Context, filter dto.ComissaoFilter) ([]model.Comissao, int64, error) {
	var lista []model.Comissao
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Comissao{})
	if filter.Consultor != "" {
		q = q.Where("consultor = ?", filter.Consultor)
	}
	if filter.Cliente != "" {
		q = q.Where("cliente ILIKE ?", "%"+filter.Cliente+"%")
	}
	if filter.TipoVenda != "" {
		q = q.Where("tipo_venda = ?", filter.TipoVenda)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("data_venda DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&lista).Error
	return lista, total, err
}

func (r *comissaoRepo) ListParaRelatorio(ctx context.Context, filter dto.RelatorioFilter) ([]model.Comissao, error) {
	var lista []model.Comissao
	q := r.db.WithContext(ctx).
		Preload("Regras", func(db *gorm.DB) *gorm.DB { return db.Order("posicao ASC") }).
		Preload("Parcelas", func(db *gorm.DB) *gorm.DB { return db.Order("numero ASC") })

	if filter.TipoVenda != "" {
		q = q.Where("tipo_venda = ?", filter.TipoVenda)
	}
	if filter.Destinatario != "" {
		q = q.Where("(consultor = ? OR gerente = ? OR anjo = ?)",
			filter.Destinatario, filter.Destinatario, filter.Destinatario)
	}

	err := q.Order("data_venda ASC").Find(&lista).Error
	return lista, err
}

func (r *comissaoRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, c *model.Comissao, esperada int) error {
	res := tx.WithContext(ctx).Model(&model.Comissao{}).
		Where("id = ? AND versao = ?", c.ID, esperada).
		Updates(map[string]interface{}{
			"cliente":        c.Cliente,
			"grupo":          c.Grupo,
			"cota":           c.Cota,
			"tipo_venda":     c.TipoVenda,
			"consultor":      c.Consultor,
			"gerente":        c.Gerente,
			"anjo":           c.Anjo,
			"valor_venda":    c.ValorVenda,
			"total_parcelas": c.TotalParcelas,
			"taxa_imposto":   c.TaxaImposto,
			"taxa_consultor": c.TaxaConsultor,
			"taxa_gerente":   c.TaxaGerente,
			"taxa_anjo":      c.TaxaAnjo,
			"usa_regras":     c.UsaRegras,
			"status":         c.Status,
			"versao":         esperada + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersaoDesatualizada
	}
	c.Versao = esperada + 1
	return nil
}

func (r *comissaoRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Model(&model.Comissao{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *comissaoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Comissao{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *comissaoRepo) ReplaceRegras(ctx context.Context, tx *gorm.DB, comissaoID uuid.UUID, regras []model.RegraComissao) error {
	if err := tx.WithContext(ctx).
		Where("comissao_id = ?", comissaoID).
		Delete(&model.RegraComissao{}).Error; err != nil {
		return err
	}
	if len(regras) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&regras).Error
}

func (r *comissaoRepo) CreateParcelas(ctx context.Context, tx *gorm.DB, parcelas []model.Parcela) error {
	if len(parcelas) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&parcelas).Error
}

func (r *comissaoRepo) DeleteParcelasAcima(ctx context.Context, tx *gorm.DB, comissaoID uuid.UUID, limite int) error {
	return tx.WithContext(ctx).
		Where("comissao_id = ? AND numero > ?", comissaoID, limite).
		Delete(&model.Parcela{}).Error
}

func (r *comissaoRepo) FindParcela(ctx context.Context, comissaoID uuid.UUID, numero int) (*model.Parcela, error) {
	var p model.Parcela
	err := r.db.WithContext(ctx).
		Where("comissao_id = ? AND numero = ?", comissaoID, numero).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *comissaoRepo) UpdateParcela(ctx context.Context, tx *gorm.DB, p *model.Parcela) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Save(p).Error
}

func (r *comissaoRepo) UltimaDataPagamento(ctx context.Context, comissaoID uuid.UUID) (*time.Time, error) {
	var p model.Parcela
	err := r.db.WithContext(ctx).
		Where("comissao_id = ? AND data_pagamento IS NOT NULL", comissaoID).
		Order("data_pagamento DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.DataPagamento, nil
}

func (r *comissaoRepo) ListParcelasVencidas(ctx context.Context, ref time.Time, limit int) ([]model.Parcela, error) {
	var parcelas []model.Parcela
	err := r.db.WithContext(ctx).
		Where("status = ? AND data_vencimento < ?", model.ParcelaPendente, ref).
		Order("data_vencimento ASC").
		Limit(limit).
		Find(&parcelas).Error
	return parcelas, err
}
