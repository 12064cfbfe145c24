package service_test

import (
	"context"
	"testing"

	"cotaflow/internal/calculo"
	"cotaflow/internal/dto"
	"cotaflow/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "esperado %s, obtido %s %v", want, got, msgAndArgs)
}

// seedRelatorio creates two records and pays three installments:
//
//	A (imovel, gerente Ana Prado):      #1 em 2024-02-04 → 2024-02
//	                                    #2 em 2024-03-10 → 2024-04
//	B (automovel, anjo Rui Teixeira):   #1 em 2024-02-20 → 2024-03
//
// Each paid installment of A nets 141/47/0; of B, 141/47/23.50.
func seedRelatorio(t *testing.T, repo *stubComissaoRepo) {
	t.Helper()
	comissoes := service.NewComissaoService(repo, nil)
	parcelas := novaParcelaService(repo)

	reqA := criarRequest()
	reqA.Gerente = str("Ana Prado")
	respA, err := comissoes.Criar(context.Background(), reqA)
	require.NoError(t, err)
	idA := uuid.MustParse(respA.ID)

	reqB := dto.CriarComissaoRequest{
		Cliente:   "Pedro Dias",
		TipoVenda: "automovel",
		DataVenda: "2024-01-15",
		Consultor: "Carla Nunes",
		Gerente:   str("Ana Prado"),
		Anjo:      str("Rui Teixeira"),
		Termos: dto.TermosRequest{
			ValorVenda:    d("60000"),
			TotalParcelas: 6,
			TaxaImposto:   d("6"),
			TaxaConsultor: d("1.5"),
			TaxaGerente:   d("0.5"),
			TaxaAnjo:      d("0.25"),
		},
	}
	respB, err := comissoes.Criar(context.Background(), reqB)
	require.NoError(t, err)
	idB := uuid.MustParse(respB.ID)

	pagar(t, parcelas, idA, 1, "2024-02-04")
	pagar(t, parcelas, idA, 2, "2024-03-10")
	pagar(t, parcelas, idB, 1, "2024-02-20")
}

func TestCompetenciasAgrupaPorMes(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{})
	require.NoError(t, err)

	require.Len(t, rel.PorMes, 3)
	assert.Equal(t, "2024-02", rel.PorMes[0].Competencia)
	assert.Equal(t, "2024-03", rel.PorMes[1].Competencia)
	assert.Equal(t, "2024-04", rel.PorMes[2].Competencia)

	fev := rel.PorMes[0]
	assert.Equal(t, 1, fev.Parcelas)
	assertDecimal(t, "10000", fev.TotalVendido)
	assertDecimal(t, "141", fev.Totais.Consultor)
	assertDecimal(t, "47", fev.Totais.Gerente)
	assert.True(t, fev.Totais.Anjo.IsZero())
	assertDecimal(t, "188", fev.Totais.Total)

	mar := rel.PorMes[1]
	assertDecimal(t, "23.5", mar.Totais.Anjo)
	assertDecimal(t, "211.5", mar.Totais.Total)

	assertDecimal(t, "30000", rel.TotalVendido)
	assertDecimal(t, "423", rel.Totais.Consultor)
	assertDecimal(t, "141", rel.Totais.Gerente)
	assertDecimal(t, "23.5", rel.Totais.Anjo)
	assertDecimal(t, "587.5", rel.Totais.Total)
}

func TestCompetenciasFiltroCompetencia(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{Competencia: "2024-04"})
	require.NoError(t, err)

	require.Len(t, rel.PorMes, 1)
	assert.Equal(t, "2024-04", rel.PorMes[0].Competencia)
	assertDecimal(t, "188", rel.Totais.Total)
	assertDecimal(t, "10000", rel.TotalVendido)
}

func TestCompetenciasFiltroDestinatario(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	// Anjo só existe no registro B: uma única parcela paga.
	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{Destinatario: "Rui Teixeira"})
	require.NoError(t, err)
	require.Len(t, rel.PorMes, 1)
	assert.Equal(t, "2024-03", rel.PorMes[0].Competencia)
	assertDecimal(t, "211.5", rel.Totais.Total)

	// Gerente compartilhada pelos dois registros: tudo entra.
	rel, err = svc.Competencias(context.Background(), dto.RelatorioFilter{Destinatario: "Ana Prado"})
	require.NoError(t, err)
	assert.Len(t, rel.PorMes, 3)

	rel, err = svc.Competencias(context.Background(), dto.RelatorioFilter{Destinatario: "Ninguém"})
	require.NoError(t, err)
	assert.Empty(t, rel.PorMes)
	assert.True(t, rel.Totais.Total.IsZero())
}

func TestCompetenciasFiltroPeriodo(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{
		DataInicio: "2024-02-10",
		DataFim:    "2024-02-28",
	})
	require.NoError(t, err)
	require.Len(t, rel.PorMes, 1)
	assert.Equal(t, "2024-03", rel.PorMes[0].Competencia) // pago em 2024-02-20

	_, err = svc.Competencias(context.Background(), dto.RelatorioFilter{DataInicio: "20/02/2024"})
	var valErr *calculo.ValidacaoError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "dataInicio", valErr.Campo)
}

func TestCompetenciasFiltroTipoVenda(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{TipoVenda: "automovel"})
	require.NoError(t, err)
	require.Len(t, rel.PorMes, 1)
	assertDecimal(t, "211.5", rel.Totais.Total)
}

func TestCompetenciasIgnoraEstornos(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	parcelas := novaParcelaService(repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	var idA uuid.UUID
	for id, c := range repo.comissoes {
		if c.Cliente == "Maria Souza" {
			idA = id
		}
	}
	_, err := parcelas.AtualizarStatus(context.Background(), idA, 2,
		dto.AtualizarStatusParcelaRequest{Status: "Pendente"})
	require.NoError(t, err)

	rel, err := svc.Competencias(context.Background(), dto.RelatorioFilter{})
	require.NoError(t, err)
	require.Len(t, rel.PorMes, 2) // 2024-04 sumiu com o estorno
	assertDecimal(t, "20000", rel.TotalVendido)
}

func TestCompetenciasContextoCancelado(t *testing.T) {
	repo := newStubComissaoRepo()
	seedRelatorio(t, repo)
	svc := service.NewRelatorioService(repo, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rel, err := svc.Competencias(ctx, dto.RelatorioFilter{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rel)
}
