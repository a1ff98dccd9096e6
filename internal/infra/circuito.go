package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/metrics"

	"github.com/rs/zerolog/log"
)

// EstadoCircuito is the state of a Circuito:
//   - cerrado: calls reach Redis
//   - abierto: calls fail fast with ErrCircuitoAbierto until Espera elapses
//   - semiabierto: calls go through to Redis; UmbralExitos successes close it, one failure reopens it
type EstadoCircuito int

const (
	CircuitoCerrado EstadoCircuito = iota
	CircuitoAbierto
	CircuitoSemiabierto
)

// String is what /health and the metrics report.
func (e EstadoCircuito) String() string {
	switch e {
	case CircuitoCerrado:
		return "closed"
	case CircuitoAbierto:
		return "open"
	case CircuitoSemiabierto:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitoAbierto = errors.New("circuito abierto: redis no disponible")

// CircuitoConfig tunes a Circuito. Zero values fall back to defaults.
type CircuitoConfig struct {
	Nombre       string
	UmbralFallos int           // consecutive failures that open it (5)
	UmbralExitos int           // successful probes that close it (2)
	Espera       time.Duration // time open before probing (30s)
	Reloj        func() time.Time
	// AlCambiar runs after every state change, outside the lock.
	AlCambiar func(nombre string, desde, hacia EstadoCircuito)
}

// Circuito guards a best-effort dependency (the Redis stock cache) so an
// outage degrades to store reads instead of a timeout per request.
type Circuito struct {
	cfg CircuitoConfig

	mu        sync.Mutex
	estado    EstadoCircuito
	fallos    int
	exitos    int
	abiertoEn time.Time
}

func NewCircuito(cfg CircuitoConfig) *Circuito {
	if cfg.Nombre == "" {
		cfg.Nombre = "redis"
	}
	if cfg.UmbralFallos <= 0 {
		cfg.UmbralFallos = 5
	}
	if cfg.UmbralExitos <= 0 {
		cfg.UmbralExitos = 2
	}
	if cfg.Espera <= 0 {
		cfg.Espera = 30 * time.Second
	}
	if cfg.Reloj == nil {
		cfg.Reloj = time.Now
	}
	return &Circuito{cfg: cfg}
}

func (c *Circuito) Nombre() string { return c.cfg.Nombre }

// Estado returns the current state, moving abierto to semiabierto once the
// wait is over.
func (c *Circuito) Estado() EstadoCircuito {
	c.mu.Lock()
	aviso := c.expirar()
	e := c.estado
	c.mu.Unlock()
	aviso()
	return e
}

// Ejecutar runs fn unless the circuit is open and records its outcome.
func (c *Circuito) Ejecutar(fn func() error) error {
	if c.Estado() == CircuitoAbierto {
		return ErrCircuitoAbierto
	}
	err := fn()

	c.mu.Lock()
	var aviso func()
	if err != nil {
		aviso = c.registrarFallo()
	} else {
		aviso = c.registrarExito()
	}
	c.mu.Unlock()
	aviso()
	return err
}

// The helpers below run under c.mu and return the notification to send
// once it is released.

func (c *Circuito) expirar() func() {
	if c.estado == CircuitoAbierto && c.cfg.Reloj().Sub(c.abiertoEn) >= c.cfg.Espera {
		c.exitos = 0
		return c.cambiar(CircuitoSemiabierto)
	}
	return func() {}
}

func (c *Circuito) registrarFallo() func() {
	c.fallos++
	switch c.estado {
	case CircuitoCerrado:
		if c.fallos < c.cfg.UmbralFallos {
			return func() {}
		}
	case CircuitoSemiabierto:
		c.fallos = 0
	default:
		return func() {}
	}
	c.abiertoEn = c.cfg.Reloj()
	return c.cambiar(CircuitoAbierto)
}

func (c *Circuito) registrarExito() func() {
	switch c.estado {
	case CircuitoCerrado:
		c.fallos = 0
	case CircuitoSemiabierto:
		c.exitos++
		if c.exitos >= c.cfg.UmbralExitos {
			c.fallos, c.exitos = 0, 0
			return c.cambiar(CircuitoCerrado)
		}
	}
	return func() {}
}

func (c *Circuito) cambiar(hacia EstadoCircuito) func() {
	desde := c.estado
	c.estado = hacia
	if c.cfg.AlCambiar == nil || desde == hacia {
		return func() {}
	}
	nombre, fn := c.cfg.Nombre, c.cfg.AlCambiar
	return func() { fn(nombre, desde, hacia) }
}

// RegistrarCambios logs every state change and counts it in m.
func RegistrarCambios(m *metrics.Metrics) func(nombre string, desde, hacia EstadoCircuito) {
	return func(nombre string, desde, hacia EstadoCircuito) {
		ev := log.Info()
		if hacia == CircuitoAbierto {
			ev = log.Warn()
		}
		ev.Str("circuito", nombre).
			Str("desde", desde.String()).
			Str("hacia", hacia.String()).
			Msg("circuito: cambio de estado")
		m.RecordCircuito(context.Background(), nombre, hacia.String())
	}
}
