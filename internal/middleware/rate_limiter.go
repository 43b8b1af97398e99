package middleware

import (
	"net/http"
	"sync"
	"time"

	"cvo/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ventana acumula peticiones por IP dentro de una ventana fija. Es memoria
// local del proceso: con varias réplicas el límite efectivo se multiplica,
// lo cual es aceptable para una API interna de concesionario.
type ventana struct {
	count  int
	expira time.Time
}

type limitador struct {
	mu       sync.Mutex
	ventanas map[string]*ventana
	limite   int
	duracion time.Duration
	mensaje  string
}

func newLimitador(limite int, duracion time.Duration, mensaje string) *limitador {
	l := &limitador{
		ventanas: make(map[string]*ventana),
		limite:   limite,
		duracion: duracion,
		mensaje:  mensaje,
	}
	go l.purgar()
	return l
}

func (l *limitador) permitir(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.ventanas[ip]
	if !ok || now.After(v.expira) {
		v = &ventana{expira: now.Add(l.duracion)}
		l.ventanas[ip] = v
	}
	v.count++
	return v.count <= l.limite, v.expira
}

// purgar elimina ventanas vencidas cada pocos minutos para que las IPs que
// no vuelven no acumulen memoria.
func (l *limitador) purgar() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		purgadas := 0
		for ip, v := range l.ventanas {
			if now.After(v.expira) {
				delete(l.ventanas, ip)
				purgadas++
			}
		}
		restantes := len(l.ventanas)
		l.mu.Unlock()

		if purgadas > 0 {
			log.Debug().
				Int("purgadas", purgadas).
				Int("restantes", restantes).
				Msg("rate limiter: ventanas vencidas purgadas")
		}
	}
}

func (l *limitador) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, expira := l.permitir(c.ClientIP())
		if !ok {
			c.Header("Retry-After", expira.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.mensaje))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter frena la fuerza bruta sobre /auth/login: 20 intentos
// por minuto y por IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newLimitador(20, time.Minute, "Demasiados intentos de login. Intente en 1 minuto.").middleware()
}

// RateLimiter limita el tráfico general de la API por IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newLimitador(limit, window, "Demasiadas solicitudes. Intente nuevamente en un momento.").middleware()
}
