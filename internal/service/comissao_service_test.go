package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cotaflow/internal/calculo"
	"cotaflow/internal/dto"
	"cotaflow/internal/model"
	"cotaflow/internal/repository"
	"cotaflow/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubComissaoRepo is an in-memory ComissaoRepository. FindByID hands out
// deep copies so mutations only stick after an explicit update, mirroring
// real DB semantics.
type stubComissaoRepo struct {
	comissoes map[uuid.UUID]*model.Comissao
}

func newStubComissaoRepo() *stubComissaoRepo {
	return &stubComissaoRepo{comissoes: make(map[uuid.UUID]*model.Comissao)}
}

func copyComissao(c *model.Comissao) *model.Comissao {
	cp := *c
	cp.Regras = append([]model.RegraComissao(nil), c.Regras...)
	cp.Parcelas = append([]model.Parcela(nil), c.Parcelas...)
	return &cp
}

func (r *stubComissaoRepo) Create(_ context.Context, _ *gorm.DB, c *model.Comissao) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for i := range c.Parcelas {
		if c.Parcelas[i].ID == uuid.Nil {
			c.Parcelas[i].ID = uuid.New()
		}
		c.Parcelas[i].ComissaoID = c.ID
	}
	for i := range c.Regras {
		c.Regras[i].ComissaoID = c.ID
	}
	r.comissoes[c.ID] = copyComissao(c)
	return nil
}

func (r *stubComissaoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Comissao, error) {
	c, ok := r.comissoes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyComissao(c), nil
}

func (r *stubComissaoRepo) List(_ context.Context, _ dto.ComissaoFilter) ([]model.Comissao, int64, error) {
	var out []model.Comissao
	for _, c := range r.comissoes {
		out = append(out, *copyComissao(c))
	}
	return out, int64(len(out)), nil
}

func (r *stubComissaoRepo) ListParaRelatorio(_ context.Context, filter dto.RelatorioFilter) ([]model.Comissao, error) {
	var out []model.Comissao
	for _, c := range r.comissoes {
		if filter.TipoVenda != "" && c.TipoVenda != filter.TipoVenda {
			continue
		}
		out = append(out, *copyComissao(c))
	}
	return out, nil
}

func (r *stubComissaoRepo) UpdateVersioned(_ context.Context, _ *gorm.DB, c *model.Comissao, esperada int) error {
	atual, ok := r.comissoes[c.ID]
	if !ok || atual.Versao != esperada {
		return repository.ErrVersaoDesatualizada
	}
	salvo := copyComissao(c)
	salvo.Regras = atual.Regras
	salvo.Parcelas = atual.Parcelas
	salvo.Versao = esperada + 1
	r.comissoes[c.ID] = salvo
	c.Versao = esperada + 1
	return nil
}

func (r *stubComissaoRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status string) error {
	c, ok := r.comissoes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	return nil
}

func (r *stubComissaoRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.comissoes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.comissoes, id)
	return nil
}

func (r *stubComissaoRepo) ReplaceRegras(_ context.Context, _ *gorm.DB, comissaoID uuid.UUID, regras []model.RegraComissao) error {
	c, ok := r.comissoes[comissaoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Regras = append([]model.RegraComissao(nil), regras...)
	return nil
}

func (r *stubComissaoRepo) CreateParcelas(_ context.Context, _ *gorm.DB, parcelas []model.Parcela) error {
	for _, p := range parcelas {
		c, ok := r.comissoes[p.ComissaoID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		c.Parcelas = append(c.Parcelas, p)
	}
	return nil
}

func (r *stubComissaoRepo) DeleteParcelasAcima(_ context.Context, _ *gorm.DB, comissaoID uuid.UUID, limite int) error {
	c, ok := r.comissoes[comissaoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mantidas := c.Parcelas[:0]
	for _, p := range c.Parcelas {
		if p.Numero <= limite {
			mantidas = append(mantidas, p)
		}
	}
	c.Parcelas = mantidas
	return nil
}

func (r *stubComissaoRepo) FindParcela(_ context.Context, comissaoID uuid.UUID, numero int) (*model.Parcela, error) {
	c, ok := r.comissoes[comissaoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range c.Parcelas {
		if c.Parcelas[i].Numero == numero {
			cp := c.Parcelas[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubComissaoRepo) UpdateParcela(_ context.Context, _ *gorm.DB, p *model.Parcela) error {
	c, ok := r.comissoes[p.ComissaoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range c.Parcelas {
		if c.Parcelas[i].Numero == p.Numero {
			c.Parcelas[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubComissaoRepo) UltimaDataPagamento(_ context.Context, comissaoID uuid.UUID) (*time.Time, error) {
	c, ok := r.comissoes[comissaoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	var ultima *time.Time
	for _, p := range c.Parcelas {
		if p.DataPagamento != nil && (ultima == nil || p.DataPagamento.After(*ultima)) {
			dp := *p.DataPagamento
			ultima = &dp
		}
	}
	return ultima, nil
}

func (r *stubComissaoRepo) ListParcelasVencidas(_ context.Context, ref time.Time, limit int) ([]model.Parcela, error) {
	var out []model.Parcela
	for _, c := range r.comissoes {
		for _, p := range c.Parcelas {
			if p.Status == model.ParcelaPendente && p.DataVencimento.Before(ref) {
				out = append(out, p)
				if len(out) >= limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (r *stubComissaoRepo) DB() *gorm.DB { return nil }

var _ repository.ComissaoRepository = (*stubComissaoRepo)(nil)

// ── Fixtures ─────────────────────────────────────────────────────────────────

func criarRequest() dto.CriarComissaoRequest {
	return dto.CriarComissaoRequest{
		Cliente:   "Maria Souza",
		Grupo:     "1402",
		Cota:      "088",
		TipoVenda: "imovel",
		DataVenda: "2024-01-10",
		Consultor: "João Lima",
		Termos: dto.TermosRequest{
			ValorVenda:    d("120000"),
			TotalParcelas: 12,
			TaxaImposto:   d("6"),
			TaxaConsultor: d("1.5"),
			TaxaGerente:   d("0.5"),
		},
	}
}

func criarComissao(t *testing.T, repo *stubComissaoRepo) *dto.ComissaoResponse {
	t.Helper()
	svc := service.NewComissaoService(repo, nil)
	resp, err := svc.Criar(context.Background(), criarRequest())
	require.NoError(t, err)
	return resp
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCriarComissaoGeraParcelasPendentes(t *testing.T) {
	repo := newStubComissaoRepo()
	resp := criarComissao(t, repo)

	assert.Equal(t, model.StatusEmAndamento, resp.Status)
	assert.Equal(t, 1, resp.Versao)
	require.Len(t, resp.Parcelas, 12)
	for i, p := range resp.Parcelas {
		assert.Equal(t, i+1, p.Numero)
		assert.Equal(t, model.ParcelaPendente, p.Status)
		assert.Nil(t, p.DataPagamento)
		assert.Nil(t, p.Competencia)
	}
	// Vencimentos avançam mês a mês a partir da venda.
	assert.Equal(t, "2024-02-10", resp.Parcelas[0].DataVencimento)
	assert.Equal(t, "2025-01-10", resp.Parcelas[11].DataVencimento)
}

func TestCriarComissaoRejeitaTermosInvalidosSemPersistir(t *testing.T) {
	repo := newStubComissaoRepo()
	svc := service.NewComissaoService(repo, nil)

	req := criarRequest()
	req.Termos.ValorVenda = decimal.Zero

	_, err := svc.Criar(context.Background(), req)
	var valErr *calculo.ValidacaoError
	require.ErrorAs(t, err, &valErr)
	assert.Empty(t, repo.comissoes)
}

func TestCriarComissaoSinalizaGapsDeRegra(t *testing.T) {
	repo := newStubComissaoRepo()
	svc := service.NewComissaoService(repo, nil)

	req := criarRequest()
	req.Termos.UsaRegras = true
	req.Termos.Regras = []dto.RegraRequest{
		{ParcelaInicio: 1, ParcelaFim: 6, TaxaConsultor: d("2")},
	}

	resp, err := svc.Criar(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, resp.ParcelasSemRegra)
}

func TestAtualizarTermosPreservaPagamentos(t *testing.T) {
	repo := newStubComissaoRepo()
	criada := criarComissao(t, repo)
	id := uuid.MustParse(criada.ID)

	// Paga a parcela 2 direto no armazenamento.
	pago := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	comp := "2024-03"
	c := repo.comissoes[id]
	c.Parcelas[1].Status = model.ParcelaPago
	c.Parcelas[1].DataPagamento = &pago
	c.Parcelas[1].Competencia = &comp

	svc := service.NewComissaoService(repo, nil)
	resp, err := svc.AtualizarTermos(context.Background(), id, dto.AtualizarTermosRequest{
		Versao: 1,
		Termos: dto.TermosRequest{
			ValorVenda:    d("120000"),
			TotalParcelas: 12,
			TaxaImposto:   d("6"),
			TaxaConsultor: d("2"), // só a taxa muda
			TaxaGerente:   d("0.5"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Versao)
	require.Len(t, resp.Parcelas, 12)
	assert.Equal(t, model.ParcelaPago, resp.Parcelas[1].Status)
	require.NotNil(t, resp.Parcelas[1].DataPagamento)
	assert.Equal(t, "2024-03-04", *resp.Parcelas[1].DataPagamento)
	assert.Equal(t, model.ParcelaPendente, resp.Parcelas[0].Status)
}

func TestAtualizarTermosEncolheEExpande(t *testing.T) {
	repo := newStubComissaoRepo()
	criada := criarComissao(t, repo)
	id := uuid.MustParse(criada.ID)
	svc := service.NewComissaoService(repo, nil)

	req := dto.AtualizarTermosRequest{
		Versao: 1,
		Termos: dto.TermosRequest{
			ValorVenda:    d("120000"),
			TotalParcelas: 8,
			TaxaImposto:   d("6"),
			TaxaConsultor: d("1.5"),
			TaxaGerente:   d("0.5"),
		},
	}
	resp, err := svc.AtualizarTermos(context.Background(), id, req)
	require.NoError(t, err)
	require.Len(t, resp.Parcelas, 8)

	// Expande de volta: as novas parcelas 9..15 nascem Pendentes.
	req.Versao = 2
	req.Termos.TotalParcelas = 15
	resp, err = svc.AtualizarTermos(context.Background(), id, req)
	require.NoError(t, err)
	require.Len(t, resp.Parcelas, 15)
	for _, p := range resp.Parcelas[8:] {
		assert.Equal(t, model.ParcelaPendente, p.Status)
	}
}

func TestAtualizarTermosVersaoDesatualizada(t *testing.T) {
	repo := newStubComissaoRepo()
	criada := criarComissao(t, repo)
	id := uuid.MustParse(criada.ID)
	svc := service.NewComissaoService(repo, nil)

	req := dto.AtualizarTermosRequest{
		Versao: 7,
		Termos: criarRequest().Termos,
	}
	_, err := svc.AtualizarTermos(context.Background(), id, req)
	assert.True(t, errors.Is(err, service.ErrVersaoConflito))
}

func TestObterLedgerRecalculaDosTermos(t *testing.T) {
	repo := newStubComissaoRepo()
	criada := criarComissao(t, repo)
	id := uuid.MustParse(criada.ID)
	svc := service.NewComissaoService(repo, nil)

	linhas, err := svc.ObterLedger(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, linhas, 12)
	assert.True(t, linhas[0].ConsultorLiquido.Equal(d("141")))
	assert.True(t, linhas[0].GerenteLiquido.Equal(d("47")))
	assert.True(t, linhas[0].Imposto.Equal(d("12")))
}

func TestExcluirComissaoInexistente(t *testing.T) {
	repo := newStubComissaoRepo()
	svc := service.NewComissaoService(repo, nil)
	err := svc.Excluir(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, service.ErrComissaoNaoEncontrada))
}
