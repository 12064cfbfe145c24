package service

import (
	"context"
	"sort"
	"time"

	"cotaflow/internal/calculo"
	"cotaflow/internal/dto"
	"cotaflow/internal/infra"
	"cotaflow/internal/model"
	"cotaflow/internal/repository"

	"github.com/shopspring/decimal"
)

type RelatorioService interface {
	// Competencias aggregates net commission per competence month across
	// every record matching the filter. Only Pago installments count.
	Competencias(ctx context.Context, filter dto.RelatorioFilter) (*dto.RelatorioResponse, error)
	// GerarExtrato renders the aggregation as a PDF statement and returns
	// the path of the generated file.
	GerarExtrato(ctx context.Context, filter dto.RelatorioFilter) (string, error)
}

type relatorioService struct {
	repo        repository.ComissaoRepository
	storagePath string
}

func NewRelatorioService(repo repository.ComissaoRepository, storagePath string) RelatorioService {
	return &relatorioService{repo: repo, storagePath: storagePath}
}

func (s *relatorioService) Competencias(ctx context.Context, filter dto.RelatorioFilter) (*dto.RelatorioResponse, error) {
	var dataInicio, dataFim *time.Time
	if filter.DataInicio != "" {
		d, err := time.Parse(formatoData, filter.DataInicio)
		if err != nil {
			return nil, &calculo.ValidacaoError{Campo: "dataInicio", Mensagem: "deve estar no formato YYYY-MM-DD"}
		}
		dataInicio = &d
	}
	if filter.DataFim != "" {
		d, err := time.Parse(formatoData, filter.DataFim)
		if err != nil {
			return nil, &calculo.ValidacaoError{Campo: "dataFim", Mensagem: "deve estar no formato YYYY-MM-DD"}
		}
		dataFim = &d
	}

	comissoes, err := s.repo.ListParaRelatorio(ctx, filter)
	if err != nil {
		return nil, err
	}

	buckets := map[string]*dto.CompetenciaBucket{}
	geral := dto.TotaisResponse{
		Consultor: decimal.Zero, Gerente: decimal.Zero, Anjo: decimal.Zero, Total: decimal.Zero,
	}
	totalVendido := decimal.Zero

	for i := range comissoes {
		// The scan over all records can be slow on large datasets; honor
		// cancellation between records and never return a partial report.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &comissoes[i]
		if filter.Destinatario != "" && !destinatarioCorresponde(c, filter.Destinatario) {
			continue
		}

		linhas, err := calculo.GerarLedger(termosFromModel(c))
		if err != nil {
			return nil, err
		}
		porNumero := make(map[int]calculo.LinhaParcela, len(linhas))
		for _, l := range linhas {
			porNumero[l.Numero] = l
		}

		for _, p := range c.Parcelas {
			if p.Status != model.ParcelaPago || p.Competencia == nil || p.DataPagamento == nil {
				continue
			}
			if dataInicio != nil && p.DataPagamento.Before(*dataInicio) {
				continue
			}
			if dataFim != nil && p.DataPagamento.After(*dataFim) {
				continue
			}
			if filter.Competencia != "" && *p.Competencia != filter.Competencia {
				continue
			}
			linha, ok := porNumero[p.Numero]
			if !ok {
				continue
			}

			b := buckets[*p.Competencia]
			if b == nil {
				b = &dto.CompetenciaBucket{
					Competencia:  *p.Competencia,
					TotalVendido: decimal.Zero,
					Totais: dto.TotaisResponse{
						Consultor: decimal.Zero, Gerente: decimal.Zero,
						Anjo: decimal.Zero, Total: decimal.Zero,
					},
				}
				buckets[*p.Competencia] = b
			}
			somarLinha(&b.Totais, linha)
			b.Parcelas++
			b.TotalVendido = b.TotalVendido.Add(linha.ValorBase)
			somarLinha(&geral, linha)
			totalVendido = totalVendido.Add(linha.ValorBase)
		}
	}

	ordenadas := make([]dto.CompetenciaBucket, 0, len(buckets))
	for _, b := range buckets {
		ordenadas = append(ordenadas, *b)
	}
	sort.Slice(ordenadas, func(i, j int) bool {
		return ordenadas[i].Competencia < ordenadas[j].Competencia
	})

	return &dto.RelatorioResponse{
		TotalVendido: totalVendido,
		Totais:       geral,
		PorMes:       ordenadas,
	}, nil
}

func (s *relatorioService) GerarExtrato(ctx context.Context, filter dto.RelatorioFilter) (string, error) {
	rel, err := s.Competencias(ctx, filter)
	if err != nil {
		return "", err
	}
	return infra.GerarExtratoPDF(rel, filter, s.storagePath)
}

func somarLinha(t *dto.TotaisResponse, l calculo.LinhaParcela) {
	t.Consultor = t.Consultor.Add(l.ConsultorLiquido)
	t.Gerente = t.Gerente.Add(l.GerenteLiquido)
	t.Anjo = t.Anjo.Add(l.AnjoLiquido)
	t.Total = t.Total.Add(l.ConsultorLiquido).Add(l.GerenteLiquido).Add(l.AnjoLiquido)
}

// destinatarioCorresponde matches the filter against any of the three
// recipient names on the record.
func destinatarioCorresponde(c *model.Comissao, nome string) bool {
	if c.Consultor == nome {
		return true
	}
	if c.Gerente != nil && *c.Gerente == nome {
		return true
	}
	if c.Anjo != nil && *c.Anjo == nome {
		return true
	}
	return false
}
