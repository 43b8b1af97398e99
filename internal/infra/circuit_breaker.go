package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker clásico de tres estados delante del relay SMTP. Con el
// relay caído las notificaciones fallan rápido en memoria en vez de agotar
// timeouts de conexión en cada trabajo de la cola.
//
//	closed    → tráfico normal
//	open      → todo falla de inmediato hasta que venza OpenTimeout
//	half-open → se deja pasar una sonda para comprobar la recuperación

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen señala que la llamada se rechazó sin intentarla.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// FailureThreshold: fallos consecutivos en closed que abren el circuito.
	FailureThreshold int
	// SuccessThreshold: sondas consecutivas en half-open que lo cierran.
	SuccessThreshold int
	// OpenTimeout: cuánto permanece abierto antes de sondear.
	OpenTimeout time.Duration
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	mu          sync.Mutex
	state       CBState
	fallos      int
	aciertos    int
	ultimoFallo time.Time
	cfg         CircuitBreakerConfig
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{state: CBClosed, cfg: cfg}
}

// State devuelve el estado actual, promoviendo open → half-open si el
// timeout ya venció.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBOpen && time.Since(cb.ultimoFallo) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.aciertos = 0
	}
	return cb.state
}

// Execute ejecuta fn a través del circuito. Con el circuito abierto
// devuelve ErrCircuitOpen sin llamar a fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarAcierto()
	return nil
}

func (cb *CircuitBreaker) registrarFallo() {
	cb.fallos++
	cb.ultimoFallo = time.Now()

	switch cb.state {
	case CBClosed:
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.state = CBOpen
			cb.aciertos = 0
		}
	case CBHalfOpen:
		// la sonda falló: vuelta a abierto
		cb.state = CBOpen
		cb.fallos = 0
	}
}

func (cb *CircuitBreaker) registrarAcierto() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.aciertos++
		if cb.aciertos >= cb.cfg.SuccessThreshold {
			cb.state = CBClosed
			cb.fallos = 0
			cb.aciertos = 0
		}
	}
}
