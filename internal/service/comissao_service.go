package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cotaflow/internal/calculo"
	"cotaflow/internal/dto"
	"cotaflow/internal/model"
	"cotaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	formatoData    = "2006-01-02"
	ledgerCacheTTL = time.Hour
)

type ComissaoService interface {
	Criar(ctx context.Context, req dto.CriarComissaoRequest) (*dto.ComissaoResponse, error)
	BuscarPorID(ctx context.Context, id uuid.UUID) (*dto.ComissaoResponse, error)
	Listar(ctx context.Context, filter dto.ComissaoFilter) (*dto.ComissaoListResponse, error)
	// AtualizarTermos rebuilds the ledger and reconciles installment states
	// by number: rows above the new count are dropped, new numbers start
	// Pendente, everything else keeps its payment history.
	AtualizarTermos(ctx context.Context, id uuid.UUID, req dto.AtualizarTermosRequest) (*dto.ComissaoResponse, error)
	ObterLedger(ctx context.Context, id uuid.UUID) ([]dto.LinhaLedgerResponse, error)
	Excluir(ctx context.Context, id uuid.UUID) error
}

type comissaoService struct {
	repo repository.ComissaoRepository
	rdb  *redis.Client // optional ledger cache; nil disables caching
}

func NewComissaoService(repo repository.ComissaoRepository, rdb *redis.Client) ComissaoService {
	return &comissaoService{repo: repo, rdb: rdb}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Criar ─────────────────────────────────────────────────────────────────────

func (s *comissaoService) Criar(ctx context.Context, req dto.CriarComissaoRequest) (*dto.ComissaoResponse, error) {
	dataVenda, err := time.Parse(formatoData, req.DataVenda)
	if err != nil {
		return nil, &calculo.ValidacaoError{Campo: "dataVenda", Mensagem: "deve estar no formato YYYY-MM-DD"}
	}

	termos := termosFromDTO(req.Termos)

	// GerarLedger validates the terms; nothing is persisted on rejection.
	ledger, err := calculo.GerarLedger(termos)
	if err != nil {
		return nil, err
	}
	if gaps := calculo.ParcelasSemRegra(ledger); len(gaps) > 0 {
		log.Warn().
			Str("cliente", req.Cliente).
			Ints("parcelas", gaps).
			Msg("regras customizadas deixam parcelas sem taxa")
	}

	c := model.Comissao{
		Cliente:   req.Cliente,
		Grupo:     req.Grupo,
		Cota:      req.Cota,
		TipoVenda: req.TipoVenda,
		DataVenda: dataVenda,
		Consultor: req.Consultor,
		Gerente:   req.Gerente,
		Anjo:      req.Anjo,

		ValorVenda:    req.Termos.ValorVenda,
		TotalParcelas: req.Termos.TotalParcelas,
		TaxaImposto:   req.Termos.TaxaImposto,
		TaxaConsultor: req.Termos.TaxaConsultor,
		TaxaGerente:   req.Termos.TaxaGerente,
		TaxaAnjo:      req.Termos.TaxaAnjo,
		UsaRegras:     req.Termos.UsaRegras,

		Status: model.StatusEmAndamento,
		Versao: 1,
	}
	c.Regras = regrasFromDTO(req.Termos.Regras)
	for numero := 1; numero <= req.Termos.TotalParcelas; numero++ {
		c.Parcelas = append(c.Parcelas, model.Parcela{
			Numero:         numero,
			Status:         model.ParcelaPendente,
			DataVencimento: dataVenda.AddDate(0, numero, 0),
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, &c)
	})
	if txErr != nil {
		return nil, txErr
	}

	return comissaoToResponse(&c, ledger), nil
}

// ── BuscarPorID / Listar ─────────────────────────────────────────────────────

func (s *comissaoService) BuscarPorID(ctx context.Context, id uuid.UUID) (*dto.ComissaoResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrComissaoNaoEncontrada
	}
	ledger, err := calculo.GerarLedger(termosFromModel(c))
	if err != nil {
		return nil, err
	}
	return comissaoToResponse(c, ledger), nil
}

func (s *comissaoService) Listar(ctx context.Context, filter dto.ComissaoFilter) (*dto.ComissaoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	lista, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	itens := make([]dto.ComissaoResponse, 0, len(lista))
	for i := range lista {
		itens = append(itens, *comissaoToResponse(&lista[i], nil))
	}
	return &dto.ComissaoListResponse{
		Data:  itens,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── AtualizarTermos ──────────────────────────────────────────────────────────

func (s *comissaoService) AtualizarTermos(ctx context.Context, id uuid.UUID, req dto.AtualizarTermosRequest) (*dto.ComissaoResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrComissaoNaoEncontrada
	}
	if req.Versao != c.Versao {
		return nil, ErrVersaoConflito
	}

	termos := termosFromDTO(req.Termos)
	ledger, err := calculo.GerarLedger(termos)
	if err != nil {
		return nil, err
	}
	if gaps := calculo.ParcelasSemRegra(ledger); len(gaps) > 0 {
		log.Warn().
			Str("comissao_id", c.ID.String()).
			Ints("parcelas", gaps).
			Msg("edição de termos deixa parcelas sem taxa")
	}

	// Reconcile installment states with the new count. Payment history above
	// the new count is discarded — operators are warned before shrinking.
	mantidas := make([]model.Parcela, 0, len(c.Parcelas))
	for _, p := range c.Parcelas {
		if p.Numero <= req.Termos.TotalParcelas {
			mantidas = append(mantidas, p)
		}
	}
	if descartadas := len(c.Parcelas) - len(mantidas); descartadas > 0 {
		log.Warn().
			Str("comissao_id", c.ID.String()).
			Int("descartadas", descartadas).
			Msg("redução de totalParcelas descartou histórico de pagamento")
	}

	var novas []model.Parcela
	for numero := len(c.Parcelas) + 1; numero <= req.Termos.TotalParcelas; numero++ {
		novas = append(novas, model.Parcela{
			ComissaoID:     c.ID,
			Numero:         numero,
			Status:         model.ParcelaPendente,
			DataVencimento: c.DataVenda.AddDate(0, numero, 0),
		})
	}

	c.ValorVenda = req.Termos.ValorVenda
	c.TotalParcelas = req.Termos.TotalParcelas
	c.TaxaImposto = req.Termos.TaxaImposto
	c.TaxaConsultor = req.Termos.TaxaConsultor
	c.TaxaGerente = req.Termos.TaxaGerente
	c.TaxaAnjo = req.Termos.TaxaAnjo
	c.UsaRegras = req.Termos.UsaRegras
	c.Status = model.DeriveStatus(append(append([]model.Parcela{}, mantidas...), novas...))

	esperada := c.Versao
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.ReplaceRegras(ctx, tx, c.ID, regrasWithParent(c.ID, regrasFromDTO(req.Termos.Regras))); err != nil {
			return err
		}
		if err := s.repo.DeleteParcelasAcima(ctx, tx, c.ID, req.Termos.TotalParcelas); err != nil {
			return err
		}
		if err := s.repo.CreateParcelas(ctx, tx, novas); err != nil {
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

	atualizada, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return comissaoToResponse(atualizada, ledger), nil
}

// ── ObterLedger ──────────────────────────────────────────────────────────────

// ObterLedger returns the derived payout schedule. The Redis cache is keyed
// by record version, so stale entries simply age out — the terms remain the
// only source of truth.
func (s *comissaoService) ObterLedger(ctx context.Context, id uuid.UUID) ([]dto.LinhaLedgerResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrComissaoNaoEncontrada
	}

	cacheKey := fmt.Sprintf("ledger:%s:v%d", c.ID, c.Versao)
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var linhas []dto.LinhaLedgerResponse
			if json.Unmarshal(raw, &linhas) == nil {
				return linhas, nil
			}
		}
	}

	ledger, err := calculo.GerarLedger(termosFromModel(c))
	if err != nil {
		return nil, err
	}
	linhas := ledgerToResponse(ledger)

	if s.rdb != nil {
		if raw, err := json.Marshal(linhas); err == nil {
			_ = s.rdb.Set(ctx, cacheKey, raw, ledgerCacheTTL).Err()
		}
	}
	return linhas, nil
}

// ── Excluir ──────────────────────────────────────────────────────────────────

func (s *comissaoService) Excluir(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrComissaoNaoEncontrada
		}
		return err
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func termosFromDTO(t dto.TermosRequest) calculo.Termos {
	regras := make([]calculo.Regra, 0, len(t.Regras))
	for _, r := range t.Regras {
		regras = append(regras, calculo.Regra{
			ParcelaInicio: r.ParcelaInicio,
			ParcelaFim:    r.ParcelaFim,
			TaxaConsultor: r.TaxaConsultor,
			TaxaGerente:   r.TaxaGerente,
			TaxaAnjo:      r.TaxaAnjo,
		})
	}
	return calculo.Termos{
		ValorVenda:    t.ValorVenda,
		TotalParcelas: t.TotalParcelas,
		TaxaImposto:   t.TaxaImposto,
		TaxaConsultor: t.TaxaConsultor,
		TaxaGerente:   t.TaxaGerente,
		TaxaAnjo:      t.TaxaAnjo,
		UsaRegras:     t.UsaRegras,
		Regras:        regras,
	}
}

func termosFromModel(c *model.Comissao) calculo.Termos {
	regras := make([]calculo.Regra, 0, len(c.Regras))
	for _, r := range c.Regras {
		regras = append(regras, calculo.Regra{
			ParcelaInicio: r.ParcelaInicio,
			ParcelaFim:    r.ParcelaFim,
			TaxaConsultor: r.TaxaConsultor,
			TaxaGerente:   r.TaxaGerente,
			TaxaAnjo:      r.TaxaAnjo,
		})
	}
	return calculo.Termos{
		ValorVenda:    c.ValorVenda,
		TotalParcelas: c.TotalParcelas,
		TaxaImposto:   c.TaxaImposto,
		TaxaConsultor: c.TaxaConsultor,
		TaxaGerente:   c.TaxaGerente,
		TaxaAnjo:      c.TaxaAnjo,
		UsaRegras:     c.UsaRegras,
		Regras:        regras,
	}
}

func regrasFromDTO(regras []dto.RegraRequest) []model.RegraComissao {
	out := make([]model.RegraComissao, 0, len(regras))
	for i, r := range regras {
		out = append(out, model.RegraComissao{
			Posicao:       i,
			ParcelaInicio: r.ParcelaInicio,
			ParcelaFim:    r.ParcelaFim,
			TaxaConsultor: r.TaxaConsultor,
			TaxaGerente:   r.TaxaGerente,
			TaxaAnjo:      r.TaxaAnjo,
		})
	}
	return out
}

func regrasWithParent(id uuid.UUID, regras []model.RegraComissao) []model.RegraComissao {
	for i := range regras {
		regras[i].ComissaoID = id
	}
	return regras
}

func ledgerToResponse(ledger []calculo.LinhaParcela) []dto.LinhaLedgerResponse {
	linhas := make([]dto.LinhaLedgerResponse, 0, len(ledger))
	for _, l := range ledger {
		linhas = append(linhas, dto.LinhaLedgerResponse{
			Numero:           l.Numero,
			ValorBase:        l.ValorBase,
			ConsultorBruto:   l.ConsultorBruto,
			GerenteBruto:     l.GerenteBruto,
			AnjoBruto:        l.AnjoBruto,
			Imposto:          l.Imposto,
			ConsultorLiquido: l.ConsultorLiquido,
			GerenteLiquido:   l.GerenteLiquido,
			AnjoLiquido:      l.AnjoLiquido,
			SemRegra:         l.SemRegra,
		})
	}
	return linhas
}

func parcelaToResponse(p *model.Parcela) *dto.ParcelaResponse {
	resp := &dto.ParcelaResponse{
		Numero:         p.Numero,
		Status:         p.Status,
		DataVencimento: p.DataVencimento.Format(formatoData),
		Competencia:    p.Competencia,
		Retroativo:     p.Retroativo,
	}
	if p.DataPagamento != nil {
		s := p.DataPagamento.Format(formatoData)
		resp.DataPagamento = &s
	}
	return resp
}

func comissaoToResponse(c *model.Comissao, ledger []calculo.LinhaParcela) *dto.ComissaoResponse {
	regras := make([]dto.RegraResponse, 0, len(c.Regras))
	for _, r := range c.Regras {
		regras = append(regras, dto.RegraResponse{
			ParcelaInicio: r.ParcelaInicio,
			ParcelaFim:    r.ParcelaFim,
			TaxaConsultor: r.TaxaConsultor,
			TaxaGerente:   r.TaxaGerente,
			TaxaAnjo:      r.TaxaAnjo,
		})
	}
	parcelas := make([]dto.ParcelaResponse, 0, len(c.Parcelas))
	for i := range c.Parcelas {
		parcelas = append(parcelas, *parcelaToResponse(&c.Parcelas[i]))
	}
	resp := &dto.ComissaoResponse{
		ID:        c.ID.String(),
		Cliente:   c.Cliente,
		Grupo:     c.Grupo,
		Cota:      c.Cota,
		TipoVenda: c.TipoVenda,
		DataVenda: c.DataVenda.Format(formatoData),
		Consultor: c.Consultor,
		Gerente:   c.Gerente,
		Anjo:      c.Anjo,

		ValorVenda:    c.ValorVenda,
		TotalParcelas: c.TotalParcelas,
		TaxaImposto:   c.TaxaImposto,
		TaxaConsultor: c.TaxaConsultor,
		TaxaGerente:   c.TaxaGerente,
		TaxaAnjo:      c.TaxaAnjo,
		UsaRegras:     c.UsaRegras,
		Regras:        regras,

		Status:   c.Status,
		Versao:   c.Versao,
		Parcelas: parcelas,

		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if ledger != nil {
		resp.ParcelasSemRegra = calculo.ParcelasSemRegra(ledger)
	}
	return resp
}
