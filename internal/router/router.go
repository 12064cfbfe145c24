package router

import (
	"time"

	"cotaflow/internal/config"
	"cotaflow/internal/handler"
	"cotaflow/internal/infra"
	"cotaflow/internal/middleware"
	"cotaflow/internal/repository"
	"cotaflow/internal/service"
	"cotaflow/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, webhookCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	comissaoRepo := repository.NewComissaoRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	comissaoSvc := service.NewComissaoService(comissaoRepo, rdb)
	parcelaSvc := service.NewParcelaService(comissaoRepo, dispatcher, cfg)
	relatorioSvc := service.NewRelatorioService(comissaoRepo, cfg.PDFStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	comissoesH := handler.NewComissoesHandler(comissaoSvc)
	parcelasH := handler.NewParcelasHandler(parcelaSvc)
	relatoriosH := handler.NewRelatoriosHandler(relatorioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, webhookCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operador, supervisor, administrador — declared per-endpoint
		leitura := middleware.RequireRole("operador", "supervisor", "administrador")
		escrita := middleware.RequireRole("supervisor", "administrador")

		v1.POST("/comissoes", escrita, comissoesH.Criar)
		v1.GET("/comissoes", leitura, comissoesH.Listar)
		v1.GET("/comissoes/:id", leitura, comissoesH.Buscar)
		v1.PUT("/comissoes/:id/termos", escrita, comissoesH.AtualizarTermos)
		v1.GET("/comissoes/:id/ledger", leitura, comissoesH.Ledger)
		v1.DELETE("/comissoes/:id", middleware.RequireRole("administrador"), comissoesH.Excluir)

		v1.POST("/comissoes/:id/parcelas/:numero/pagamento", escrita, parcelasH.RegistrarPagamento)
		v1.PATCH("/comissoes/:id/parcelas/:numero/status", escrita, parcelasH.AtualizarStatus)

		v1.GET("/relatorios/competencias", leitura, relatoriosH.Competencias)
		v1.GET("/relatorios/competencias/extrato", leitura, relatoriosH.Extrato)

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Criar)
			usuarios.GET("", usuariosH.Listar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
