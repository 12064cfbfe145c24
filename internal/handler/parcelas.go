package handler

import (
	"net/http"
	"strconv"

	"cotaflow/internal/apierror"
	"cotaflow/internal/dto"
	"cotaflow/internal/service"

	"github.com/gin-gonic/gin"
)

type ParcelasHandler struct{ svc service.ParcelaService }

func NewParcelasHandler(svc service.ParcelaService) *ParcelasHandler {
	return &ParcelasHandler{svc: svc}
}

// RegistrarPagamento godoc
// @Summary      Registrar pagamento de parcela
// @Description  Marca a parcela como Paga, grava a data do pagamento e deriva a competência. Pagamentos retroativos são aceitos e sinalizados.
// @Tags         parcelas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string                        true "UUID da comissão"
// @Param        numero path int                           true "Número da parcela"
// @Param        body   body dto.RegistrarPagamentoRequest true "Data do pagamento"
// @Success      200    {object} dto.ParcelaResponse
// @Failure      409    {object} apierror.APIError "Transição inválida"
// @Failure      422    {object} apierror.ValidationError
// @Router       /v1/comissoes/{id}/parcelas/{numero}/pagamento [post]
func (h *ParcelasHandler) RegistrarPagamento(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	numero, ok := parseNumero(c)
	if !ok {
		return
	}
	var req dto.RegistrarPagamentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarPagamento(c.Request.Context(), id, numero, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AtualizarStatus godoc
// @Summary      Alterar status de parcela
// @Description  Move a parcela para Pendente, Pago, Atraso ou Cancelado, respeitando as transições permitidas. O status do registro é rederivado.
// @Tags         parcelas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string                            true "UUID da comissão"
// @Param        numero path int                               true "Número da parcela"
// @Param        body   body dto.AtualizarStatusParcelaRequest true "Novo status"
// @Success      200    {object} dto.ParcelaResponse
// @Failure      409    {object} apierror.APIError "Transição inválida"
// @Router       /v1/comissoes/{id}/parcelas/{numero}/status [patch]
func (h *ParcelasHandler) AtualizarStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	numero, ok := parseNumero(c)
	if !ok {
		return
	}
	var req dto.AtualizarStatusParcelaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AtualizarStatus(c.Request.Context(), id, numero, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseNumero(c *gin.Context) (int, bool) {
	numero, err := strconv.Atoi(c.Param("numero"))
	if err != nil || numero < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("Número de parcela inválido"))
		return 0, false
	}
	return numero, true
}
