package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/koouhz/beefybeer-sub000/internal/metrics"
)

// pasoAplicado is a forward step that already took effect, paired with the
// inverse action that undoes it.
type pasoAplicado struct {
	nombre    string
	compensar func(ctx context.Context) error
}

// saga records applied steps of a multi-record operation so they can be
// undone in reverse order when a later step fails. The store offers no
// cross-row transaction; this is the only atomicity the engine provides.
type saga struct {
	tipo       string // fixed operation kind, used as metric label
	referencia string // what the run was about, for logs and incidents
	aplicados  []pasoAplicado
}

func nuevaSaga(tipo, referencia string) *saga {
	return &saga{tipo: tipo, referencia: referencia}
}

func (s *saga) operacion() string {
	if s.referencia == "" {
		return s.tipo
	}
	return s.tipo + " " + s.referencia
}

type claveCompensando struct{}

// compensando reports whether ctx belongs to a running reversal. A nested
// operation that fails there leaves the report to the outer saga.
func compensando(ctx context.Context) bool {
	v, _ := ctx.Value(claveCompensando{}).(bool)
	return v
}

// registrar marks a step as applied.
func (s *saga) registrar(nombre string, compensar func(ctx context.Context) error) {
	s.aplicados = append(s.aplicados, pasoAplicado{nombre: nombre, compensar: compensar})
}

// revertir runs every compensation in reverse order, even after one of them
// fails, on a context detached from the caller's cancellation. It returns nil
// when everything was undone, or a *CompensacionFallidaError listing each
// failed reversal.
func (s *saga) revertir(ctx context.Context, causa error) error {
	ctx = context.WithValue(context.WithoutCancel(ctx), claveCompensando{}, true)
	var fallos []error
	for i := len(s.aplicados) - 1; i >= 0; i-- {
		p := s.aplicados[i]
		if err := p.compensar(ctx); err != nil {
			fallos = append(fallos, fmt.Errorf("%s: %w", p.nombre, err))
		}
	}
	s.aplicados = nil
	if len(fallos) == 0 {
		return nil
	}
	return &CompensacionFallidaError{Tipo: s.tipo, Operacion: s.operacion(), Causa: causa, Fallos: fallos}
}

// abortarSaga undoes sg and returns the error the caller should see: causa
// when everything was undone, the *CompensacionFallidaError otherwise.
// Failures are reported once, by the outermost saga.
func abortarSaga(ctx context.Context, sg *saga, causa error, alertador Alertador, m *metrics.Metrics) error {
	if len(sg.aplicados) == 0 {
		return causa
	}
	if err := sg.revertir(ctx, causa); err != nil {
		var cf *CompensacionFallidaError
		if errors.As(err, &cf) && !compensando(ctx) {
			reportarCompensacionFallida(ctx, alertador, m, cf)
		}
		return err
	}
	m.RecordCompensacion(ctx, sg.tipo, true)
	return causa
}
