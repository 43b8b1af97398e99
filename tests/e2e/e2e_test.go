//go:build integration

package e2e

// e2e_test.go
// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// These tests:
//   T-E2E-1: Confirming a key movement resolves the matching incident
//   T-E2E-2: Manual incident toggle is self-inverse and leaves two ledger rows
//   T-E2E-3: Pending summary counts only unresolved movements
//   T-E2E-4: Rejecting a pending movement blocks later confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"net/http/httptest"
	"testing"

	"cvo/internal/config"
	"cvo/internal/infra"
	"cvo/internal/model"
	"cvo/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
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
	engine *gin.Engine
	db     *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	// Start Postgres container
	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("cvo_test"),
		tcPostgres.WithUsername("cvo"),
		tcPostgres.WithPassword("cvo"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start Redis container
	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                   8000,
		Env:                    "test",
		JWTSecret:              "test-secret-key",
		JWTExpirationHours:     8,
		JWTRefreshHours:        24,
		PlazoConfirmacionHoras: 24,
		DatabaseURL:            pgURL,
		RedisURL:               rdURL,
		WorkerPoolSize:         1,
	}

	// Connect DB — NewDatabase runs AutoMigrate and schema patches
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("cvo2026"), 12)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Usuario{
		Username:     "admin@e2e.test",
		Nombre:       "Admin E2E",
		PasswordHash: string(hash),
		Rol:          model.RolAdmin,
		Activo:       true,
	}).Error)

	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, smtpCB)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	// Login as admin
	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "cvo2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken, engine: r, db: db}
}

func crearEntrega(t *testing.T, env *testEnv, matricula string, tipos ...string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/entregas",
		jsonBody(t, map[string]any{
			"matricula":        matricula,
			"modelo":           "X1",
			"tipos_incidencia": tipos,
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var e struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &e)
	return e.ID
}

func crearMovimiento(t *testing.T, env *testEnv, matricula, tipo, aTitular string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/movimientos",
		jsonBody(t, map[string]any{
			"matricula": matricula,
			"tipo":      tipo,
			"a_titular": aTitular,
			"motivo":    "e2e",
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var m struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &m)
	return m.ID
}

// ── Tests ────────────────────────────────────────────────────────────────────

// T-E2E-1: confirming a second_key movement clears the "2ª llave" incident
func TestE2E_ConfirmarMovimientoResuelveIncidencia(t *testing.T) {
	env := setupTestEnv(t)

	entregaID := crearEntrega(t, env, "1234ABC", "2ª llave", "Carrocería")
	movID := crearMovimiento(t, env, "1234ABC", "second_key", "taller")

	confResp := do(t, env.server, "POST", "/v1/movimientos/llaves/"+movID+"/confirmar",
		jsonBody(t, map[string]any{"notas": "recibida en taller"}), env.token)
	require.Equal(t, http.StatusOK, confResp.StatusCode)
	var mov struct {
		Estado string `json:"estado"`
	}
	decodeJSON(t, confResp, &mov)
	assert.Equal(t, "confirmado", mov.Estado)

	// The "2ª llave" incident is gone, "Carrocería" remains.
	entResp := do(t, env.server, "GET", "/v1/entregas/"+entregaID, nil, env.token)
	require.Equal(t, http.StatusOK, entResp.StatusCode)
	var ent struct {
		Incidencia      bool     `json:"incidencia"`
		TiposIncidencia []string `json:"tipos_incidencia"`
	}
	decodeJSON(t, entResp, &ent)
	assert.True(t, ent.Incidencia)
	assert.Equal(t, []string{"Carrocería"}, ent.TiposIncidencia)

	// The ledger records the automatic resolution.
	histResp := do(t, env.server, "GET", "/v1/incidencias/historial?matricula=1234ABC&tipo="+escape("2ª llave"), nil, env.token)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist []struct {
		Accion   string `json:"accion"`
		Resuelta bool   `json:"resuelta"`
	}
	decodeJSON(t, histResp, &hist)
	require.NotEmpty(t, hist)
	resueltas := 0
	for _, h := range hist {
		if h.Accion == "resuelta" && h.Resuelta {
			resueltas++
		}
	}
	assert.Equal(t, 1, resueltas)

	// A second confirmation is a conflict.
	dupResp := do(t, env.server, "POST", "/v1/movimientos/llaves/"+movID+"/confirmar",
		jsonBody(t, map[string]any{}), env.token)
	assert.Equal(t, http.StatusConflict, dupResp.StatusCode)
}

// T-E2E-2: manual toggle add/remove leaves exactly two ledger rows
func TestE2E_ToggleIncidencia(t *testing.T) {
	env := setupTestEnv(t)
	entregaID := crearEntrega(t, env, "5678DEF")

	for i, esperaAccion := range []string{"añadida", "eliminada"} {
		resp := do(t, env.server, "POST", "/v1/entregas/"+entregaID+"/incidencias/toggle",
			jsonBody(t, map[string]any{"tipo": "Mecánica"}), env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "toggle %d", i)
		var body struct {
			Accion  string `json:"accion"`
			Entrega struct {
				Incidencia bool `json:"incidencia"`
			} `json:"entrega"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, esperaAccion, body.Accion)
	}

	histResp := do(t, env.server, "GET", "/v1/incidencias/historial?matricula=5678DEF", nil, env.token)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist []struct {
		Accion string `json:"accion"`
	}
	decodeJSON(t, histResp, &hist)
	assert.Len(t, hist, 2)
}

// T-E2E-3: pending summary counts only unresolved movements per family
func TestE2E_ResumenPendientes(t *testing.T) {
	env := setupTestEnv(t)

	crearMovimiento(t, env, "1111AAA", "first_key", "custodia")
	crearMovimiento(t, env, "1111AAA", "technical_sheet", "custodia")
	movID := crearMovimiento(t, env, "2222BBB", "card_key", "custodia")

	// Confirm one — it drops out of the summary.
	confResp := do(t, env.server, "POST", "/v1/movimientos/llaves/"+movID+"/confirmar",
		jsonBody(t, map[string]any{}), env.token)
	require.Equal(t, http.StatusOK, confResp.StatusCode)

	resResp := do(t, env.server, "GET", "/v1/movimientos/resumen?titular=custodia", nil, env.token)
	require.Equal(t, http.StatusOK, resResp.StatusCode)
	var resumen struct {
		Total      int `json:"total"`
		Llaves     int `json:"llaves"`
		Documentos int `json:"documentos"`
	}
	decodeJSON(t, resResp, &resumen)
	assert.Equal(t, 1, resumen.Llaves)
	assert.Equal(t, 1, resumen.Documentos)
	assert.Equal(t, 2, resumen.Total)
}

// T-E2E-4: a rejected movement can never be confirmed afterwards
func TestE2E_RechazoBloqueaConfirmacion(t *testing.T) {
	env := setupTestEnv(t)
	movID := crearMovimiento(t, env, "3333CCC", "circulation_permit", "comerciales")

	rejResp := do(t, env.server, "POST", "/v1/movimientos/documentos/"+movID+"/rechazar",
		jsonBody(t, map[string]any{"motivo": "documento equivocado"}), env.token)
	require.Equal(t, http.StatusOK, rejResp.StatusCode)

	confResp := do(t, env.server, "POST", "/v1/movimientos/documentos/"+movID+"/confirmar",
		jsonBody(t, map[string]any{}), env.token)
	assert.Equal(t, http.StatusConflict, confResp.StatusCode)

	// Custody fell back to the dealership.
	custResp := do(t, env.server, "GET", "/v1/vehiculos/3333CCC/custodia", nil, env.token)
	require.Equal(t, http.StatusOK, custResp.StatusCode)
	var elems []struct {
		Tipo   string  `json:"Tipo"`
		Estado string  `json:"Estado"`
		Titular *string `json:"Titular"`
	}
	decodeJSON(t, custResp, &elems)
	require.Len(t, elems, 1)
	assert.Equal(t, "En concesionario", elems[0].Estado)
	assert.Nil(t, elems[0].Titular)
}

func escape(s string) string {
	return url.QueryEscape(s)
}
