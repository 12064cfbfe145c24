package handler

import (
	"net/http"

	"cotaflow/internal/apierror"
	"cotaflow/internal/dto"
	"cotaflow/internal/service"

	"github.com/gin-gonic/gin"
)

type RelatoriosHandler struct{ svc service.RelatorioService }

func NewRelatoriosHandler(svc service.RelatorioService) *RelatoriosHandler {
	return &RelatoriosHandler{svc: svc}
}

// Competencias godoc
// @Summary      Relatório por competência
// @Description  Agrega os líquidos pagos por mês de competência. Apenas parcelas Pagas entram; o resultado é consistente com o ledger de cada registro.
// @Tags         relatorios
// @Produce      json
// @Security     BearerAuth
// @Param        competencia  query string false "YYYY-MM"
// @Param        destinatario query string false "Nome do destinatário (qualquer papel)"
// @Param        data_inicio  query string false "YYYY-MM-DD sobre a data de pagamento"
// @Param        data_fim     query string false "YYYY-MM-DD inclusive"
// @Param        tipo_venda   query string false "Tipo de venda"
// @Success      200 {object} dto.RelatorioResponse
// @Router       /v1/relatorios/competencias [get]
func (h *RelatoriosHandler) Competencias(c *gin.Context) {
	var filter dto.RelatorioFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Competencias(c.Request.Context(), filter)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Extrato godoc
// @Summary      Extrato em PDF
// @Description  Gera o extrato de competências em PDF e retorna o arquivo.
// @Tags         relatorios
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        competencia  query string false "YYYY-MM"
// @Param        destinatario query string false "Nome do destinatário"
// @Success      200
// @Router       /v1/relatorios/competencias/extrato [get]
func (h *RelatoriosHandler) Extrato(c *gin.Context) {
	var filter dto.RelatorioFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	path, err := h.svc.GerarExtrato(c.Request.Context(), filter)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.FileAttachment(path, "extrato.pdf")
}
