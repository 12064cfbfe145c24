package handler

import (
	"net/http"

	"cotaflow/internal/apierror"
	"cotaflow/internal/dto"
	"cotaflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ComissoesHandler struct{ svc service.ComissaoService }

func NewComissoesHandler(svc service.ComissaoService) *ComissoesHandler {
	return &ComissoesHandler{svc: svc}
}

// Criar godoc
// @Summary      Registrar venda e comissão
// @Description  Cria o registro da venda com os termos financeiros e gera as parcelas Pendentes.
// @Tags         comissoes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CriarComissaoRequest true "Dados da venda e termos"
// @Success      201  {object} dto.ComissaoResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/comissoes [post]
func (h *ComissoesHandler) Criar(c *gin.Context) {
	var req dto.CriarComissaoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Criar(c.Request.Context(), req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar comissões
// @Tags         comissoes
// @Produce      json
// @Security     BearerAuth
// @Param        consultor  query string false "Nome do consultor"
// @Param        cliente    query string false "Nome do cliente"
// @Param        tipo_venda query string false "Tipo de venda"
// @Param        status     query string false "EmAndamento | Atraso | Concluido | Cancelado"
// @Param        page       query int    false "Página (default 1)"
// @Param        limit      query int    false "Registros por página (default 50)"
// @Success      200 {object} dto.ComissaoListResponse
// @Router       /v1/comissoes [get]
func (h *ComissoesHandler) Listar(c *gin.Context) {
	var filter dto.ComissaoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Buscar godoc
// @Summary      Detalhe de uma comissão
// @Tags         comissoes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID da comissão"
// @Success      200 {object} dto.ComissaoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/comissoes/{id} [get]
func (h *ComissoesHandler) Buscar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.BuscarPorID(c.Request.Context(), id)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AtualizarTermos godoc
// @Summary      Atualizar termos financeiros
// @Description  Substitui valor, parcelas, taxas e regras. Parcelas pagas preservam estado; o ledger inteiro é recalculado. Exige a versão atual do registro.
// @Tags         comissoes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "UUID da comissão"
// @Param        body body dto.AtualizarTermosRequest true "Novos termos + versão"
// @Success      200  {object} dto.ComissaoResponse
// @Failure      409  {object} apierror.APIError "Versão desatualizada"
// @Router       /v1/comissoes/{id}/termos [put]
func (h *ComissoesHandler) AtualizarTermos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AtualizarTermosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AtualizarTermos(c.Request.Context(), id, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ledger godoc
// @Summary      Ledger derivado da comissão
// @Description  Retorna as linhas de repasse por parcela (brutos, imposto e líquidos), recalculadas dos termos vigentes.
// @Tags         comissoes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID da comissão"
// @Success      200 {array}  dto.LinhaLedgerResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/comissoes/{id}/ledger [get]
func (h *ComissoesHandler) Ledger(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObterLedger(c.Request.Context(), id)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Excluir godoc
// @Summary      Excluir comissão
// @Description  Remove o registro e todas as parcelas e regras associadas.
// @Tags         comissoes
// @Security     BearerAuth
// @Param        id path string true "UUID da comissão"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/comissoes/{id} [delete]
func (h *ComissoesHandler) Excluir(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Excluir(c.Request.Context(), id); err != nil {
		respondErro(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}
