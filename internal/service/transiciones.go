package service

import "github.com/koouhz/beefybeer-sub000/internal/model"

// transicionesPedido is the order lifecycle. Edges not listed are illegal;
// cancelado is terminal.
var transicionesPedido = map[string][]string{
	model.EstadoPendiente:   {model.EstadoPreparacion, model.EstadoListo, model.EstadoPagado, model.EstadoCancelado},
	model.EstadoPreparacion: {model.EstadoListo, model.EstadoPagado, model.EstadoCancelado},
	model.EstadoListo:       {model.EstadoPagado, model.EstadoCancelado},
	model.EstadoPagado:      {model.EstadoPendiente, model.EstadoPreparacion, model.EstadoListo},
	model.EstadoCancelado:   {},
}

// EstadoPedidoValido reports whether estado is a known order state.
func EstadoPedidoValido(estado string) bool {
	_, ok := transicionesPedido[estado]
	return ok
}

// PuedeTransicionar reports whether desde → hacia is an allowed edge.
func PuedeTransicionar(desde, hacia string) bool {
	for _, destino := range transicionesPedido[desde] {
		if destino == hacia {
			return true
		}
	}
	return false
}

// TransicionesDesde lists the states reachable from estado.
func TransicionesDesde(estado string) []string {
	destinos := transicionesPedido[estado]
	out := make([]string, len(destinos))
	copy(out, destinos)
	return out
}

// pedidoEditable reports whether items may still be added or removed.
func pedidoEditable(estado string) bool {
	switch estado {
	case model.EstadoPendiente, model.EstadoPreparacion, model.EstadoListo:
		return true
	}
	return false
}
