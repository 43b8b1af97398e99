package router

import (
	"time"

	"cvo/internal/config"
	"cvo/internal/handler"
	"cvo/internal/infra"
	"cvo/internal/middleware"
	"cvo/internal/model"
	"cvo/internal/repository"
	"cvo/internal/service"
	"cvo/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
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
	stockRepo := repository.NewStockRepository(db)
	entregaRepo := repository.NewEntregaRepository(db)
	incidenciaRepo := repository.NewIncidenciaRepository(db)
	movimientoRepo := repository.NewMovimientoRepository(db)
	custodiaRepo := repository.NewCustodiaRepository(db)
	notificacionRepo := repository.NewNotificacionRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	permisoSvc := service.NewPermisoService(usuarioRepo, stockRepo)
	incidenciaSvc := service.NewIncidenciaService(entregaRepo, incidenciaRepo, usuarioRepo, notificacionRepo, permisoSvc, dispatcher, nil)
	movimientoSvc := service.NewMovimientoService(movimientoRepo, custodiaRepo, permisoSvc, incidenciaSvc, nil,
		time.Duration(cfg.PlazoConfirmacionHoras)*time.Hour)
	entregaSvc := service.NewEntregaService(entregaRepo, incidenciaRepo, usuarioRepo, nil)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	movimientosH := handler.NewMovimientosHandler(movimientoSvc)
	entregasH := handler.NewEntregasHandler(entregaSvc)
	incidenciasH := handler.NewIncidenciasHandler(incidenciaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	todos := middleware.RequireRole(model.RolAdmin, model.RolSupervisor, model.RolAsesor)
	v1 := r.Group("/v1", jwtMW)
	{
		// Movimientos — cualquier empleado registra y consulta; la puerta
		// fina (asesor asignado) vive en el servicio, no en la ruta.
		v1.POST("/movimientos", todos, movimientosH.Crear)
		v1.GET("/movimientos", todos, movimientosH.Pendientes)
		v1.GET("/movimientos/resumen", todos, movimientosH.Resumen)
		v1.GET("/movimientos/:familia/:id", todos, movimientosH.Obtener)
		v1.POST("/movimientos/:familia/:id/confirmar", todos, movimientosH.Confirmar)
		v1.POST("/movimientos/:familia/:id/rechazar", todos, movimientosH.Rechazar)

		v1.GET("/vehiculos/:matricula/movimientos", todos, movimientosH.PorMatricula)
		v1.GET("/vehiculos/:matricula/custodia", todos, movimientosH.Custodia)

		// Entregas
		v1.POST("/entregas", middleware.RequireRole(model.RolAdmin, model.RolSupervisor), entregasH.Crear)
		v1.GET("/entregas", todos, entregasH.Listar)
		v1.GET("/entregas/:id", todos, entregasH.Obtener)
		v1.POST("/entregas/:id/entregar", middleware.RequireRole(model.RolAdmin, model.RolSupervisor), entregasH.RegistrarEntrega)

		// Incidencias
		v1.POST("/entregas/:id/incidencias/toggle", todos, incidenciasH.Toggle)
		v1.GET("/incidencias/historial", todos, incidenciasH.Historial)
		v1.GET("/incidencias/informe", middleware.RequireRole(model.RolAdmin, model.RolSupervisor), incidenciasH.Informe)
		v1.GET("/incidencias/tipos", todos, incidenciasH.Tipos)

		// Usuarios — solo admin
		usuarios := v1.Group("/usuarios", middleware.RequireRole(model.RolAdmin))
		{
			usuarios.POST("", authH.CrearUsuario)
			usuarios.GET("", authH.ListarUsuarios)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
