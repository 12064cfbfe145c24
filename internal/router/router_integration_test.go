//go:build integration

package router_test

// End-to-end tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cotaflow/internal/config"
	"cotaflow/internal/dto"
	"cotaflow/internal/infra"
	"cotaflow/internal/model"
	"cotaflow/internal/router"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("cotaflow_test"),
		tcPostgres.WithUsername("cotaflow"),
		tcPostgres.WithPassword("cotaflow"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTExpirationHours:  8,
		JWTRefreshHours:     24,
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		WorkerPoolSize:      1,
		PDFStoragePath:      t.TempDir(),
		DiaCorteCompetencia: 5,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("cotaflow-e2e"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Usuario{
		Username:     "admin.e2e",
		Nome:         "Admin E2E",
		PasswordHash: string(hash),
		Rol:          "administrador",
		Ativo:        true,
	}).Error)

	webhookCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, webhookCB)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin.e2e", "password": "cotaflow-e2e"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody dto.LoginResponse
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

func comissaoPadrao() map[string]any {
	return map[string]any{
		"cliente":    "Maria Souza",
		"grupo":      "1402",
		"cota":       "088",
		"tipo_venda": "imovel",
		"data_venda": "2024-01-10",
		"consultor":  "João Lima",
		"gerente":    "Ana Prado",
		"termos": map[string]any{
			"valor_venda":    "120000",
			"total_parcelas": 12,
			"taxa_imposto":   "6",
			"taxa_consultor": "1.5",
			"taxa_gerente":   "0.5",
		},
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full lifecycle: create → pay → ledger → report.
func TestE2E_CicloCompleto(t *testing.T) {
	env := setupTestEnv(t)

	criarResp := do(t, env.server, "POST", "/v1/comissoes", jsonBody(t, comissaoPadrao()), env.token)
	require.Equal(t, http.StatusCreated, criarResp.StatusCode)
	var criada dto.ComissaoResponse
	decodeJSON(t, criarResp, &criada)
	assert.Equal(t, model.StatusEmAndamento, criada.Status)
	assert.Equal(t, 1, criada.Versao)
	require.Len(t, criada.Parcelas, 12)

	// Pay installment 1 on the 4th → competence 2024-02
	pagResp := do(t, env.server,
		"POST", "/v1/comissoes/"+criada.ID+"/parcelas/1/pagamento",
		jsonBody(t, map[string]string{"data_pagamento": "2024-02-04"}), env.token)
	require.Equal(t, http.StatusOK, pagResp.StatusCode)
	var paga dto.ParcelaResponse
	decodeJSON(t, pagResp, &paga)
	assert.Equal(t, model.ParcelaPago, paga.Status)
	require.NotNil(t, paga.Competencia)
	assert.Equal(t, "2024-02", *paga.Competencia)

	// Pay installment 2 on the 10th → competence 2024-04
	pagResp = do(t, env.server,
		"POST", "/v1/comissoes/"+criada.ID+"/parcelas/2/pagamento",
		jsonBody(t, map[string]string{"data_pagamento": "2024-03-10"}), env.token)
	require.Equal(t, http.StatusOK, pagResp.StatusCode)

	// Derived ledger
	ledgerResp := do(t, env.server, "GET", "/v1/comissoes/"+criada.ID+"/ledger", nil, env.token)
	require.Equal(t, http.StatusOK, ledgerResp.StatusCode)
	var linhas []dto.LinhaLedgerResponse
	decodeJSON(t, ledgerResp, &linhas)
	require.Len(t, linhas, 12)
	assert.True(t, linhas[0].ValorBase.Equal(decimal.RequireFromString("10000")))
	assert.True(t, linhas[0].ConsultorLiquido.Equal(decimal.RequireFromString("141")))
	assert.True(t, linhas[0].GerenteLiquido.Equal(decimal.RequireFromString("47")))

	// Competence report: one bucket per paid month
	relResp := do(t, env.server, "GET", "/v1/relatorios/competencias", nil, env.token)
	require.Equal(t, http.StatusOK, relResp.StatusCode)
	var rel dto.RelatorioResponse
	decodeJSON(t, relResp, &rel)
	require.Len(t, rel.PorMes, 2)
	assert.Equal(t, "2024-02", rel.PorMes[0].Competencia)
	assert.Equal(t, "2024-04", rel.PorMes[1].Competencia)
	assert.True(t, rel.Totais.Total.Equal(decimal.RequireFromString("376")))
	assert.True(t, rel.TotalVendido.Equal(decimal.RequireFromString("20000")))
}

// Editing terms with a stale version must 409 without touching the record.
func TestE2E_ConflitoDeVersao(t *testing.T) {
	env := setupTestEnv(t)

	criarResp := do(t, env.server, "POST", "/v1/comissoes", jsonBody(t, comissaoPadrao()), env.token)
	require.Equal(t, http.StatusCreated, criarResp.StatusCode)
	var criada dto.ComissaoResponse
	decodeJSON(t, criarResp, &criada)

	// Payment bumps the version to 2.
	pagResp := do(t, env.server,
		"POST", "/v1/comissoes/"+criada.ID+"/parcelas/1/pagamento",
		jsonBody(t, map[string]string{"data_pagamento": "2024-02-04"}), env.token)
	require.Equal(t, http.StatusOK, pagResp.StatusCode)

	termos := map[string]any{
		"versao": 1, // stale
		"termos": comissaoPadrao()["termos"],
	}
	editResp := do(t, env.server, "PUT", "/v1/comissoes/"+criada.ID+"/termos",
		jsonBody(t, termos), env.token)
	assert.Equal(t, http.StatusConflict, editResp.StatusCode)

	// Retry with the current version succeeds and preserves the payment.
	termos["versao"] = 2
	editResp = do(t, env.server, "PUT", "/v1/comissoes/"+criada.ID+"/termos",
		jsonBody(t, termos), env.token)
	require.Equal(t, http.StatusOK, editResp.StatusCode)
	var editada dto.ComissaoResponse
	decodeJSON(t, editResp, &editada)
	assert.Equal(t, 3, editada.Versao)
	assert.Equal(t, model.ParcelaPago, editada.Parcelas[0].Status)
}

// Paying before the sale date is rejected with a validation error.
func TestE2E_PagamentoAntesDaVenda(t *testing.T) {
	env := setupTestEnv(t)

	criarResp := do(t, env.server, "POST", "/v1/comissoes", jsonBody(t, comissaoPadrao()), env.token)
	require.Equal(t, http.StatusCreated, criarResp.StatusCode)
	var criada dto.ComissaoResponse
	decodeJSON(t, criarResp, &criada)

	pagResp := do(t, env.server,
		"POST", "/v1/comissoes/"+criada.ID+"/parcelas/1/pagamento",
		jsonBody(t, map[string]string{"data_pagamento": "2023-12-31"}), env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, pagResp.StatusCode)
	pagResp.Body.Close()
}

// Unauthenticated and under-privileged access.
func TestE2E_Autorizacao(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/v1/comissoes", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Create an operador: may read, may not write.
	userResp := do(t, env.server, "POST", "/v1/usuarios",
		jsonBody(t, map[string]any{
			"username": "op.e2e",
			"nome":     "Operador E2E",
			"password": "senha-e2e-123",
			"rol":      "operador",
		}), env.token)
	require.Equal(t, http.StatusCreated, userResp.StatusCode)
	userResp.Body.Close()

	loginResp := do(t, env.server, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "op.e2e", "password": "senha-e2e-123"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login dto.LoginResponse
	decodeJSON(t, loginResp, &login)

	listResp := do(t, env.server, "GET", "/v1/comissoes?page=1&limit=10", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
	listResp.Body.Close()

	criarResp := do(t, env.server, "POST", "/v1/comissoes", jsonBody(t, comissaoPadrao()), login.AccessToken)
	assert.Equal(t, http.StatusForbidden, criarResp.StatusCode)
	criarResp.Body.Close()
}

func TestE2E_ListagemComFiltros(t *testing.T) {
	env := setupTestEnv(t)

	for i, tipo := range []string{"imovel", "imovel", "automovel"} {
		req := comissaoPadrao()
		req["cliente"] = fmt.Sprintf("Cliente %d", i+1)
		req["tipo_venda"] = tipo
		resp := do(t, env.server, "POST", "/v1/comissoes", jsonBody(t, req), env.token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	listResp := do(t, env.server, "GET", "/v1/comissoes?tipo_venda=imovel&page=1&limit=10", nil, env.token)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var lista dto.ComissaoListResponse
	decodeJSON(t, listResp, &lista)
	assert.Equal(t, int64(2), lista.Total)
	assert.Len(t, lista.Data, 2)
}
