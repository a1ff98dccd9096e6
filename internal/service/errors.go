package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors returned by the engine. Typed errors below match them
// through errors.Is.
var (
	ErrTransicionInvalida   = errors.New("transición de estado inválida")
	ErrStockInsuficiente    = errors.New("stock insuficiente")
	ErrVentaDuplicada       = errors.New("el pedido ya tiene una venta registrada")
	ErrPedidoSinItems       = errors.New("el pedido no tiene items")
	ErrCompensacionFallida  = errors.New("compensación fallida: se requiere conciliación manual")
	ErrPedidoConVenta       = errors.New("no se puede eliminar un pedido con venta asociada")
	ErrPedidoCerrado        = errors.New("el pedido no admite cambios en su estado actual")
	ErrNoEncontrado         = errors.New("registro no encontrado")
	ErrConflictoConcurrente = errors.New("el registro fue modificado por otra operación")
	ErrCantidadInvalida     = errors.New("cantidad inválida")
	ErrEstadoInvalido       = errors.New("estado inválido")
	ErrYaExiste             = errors.New("el registro ya existe")
)

// TransicionInvalidaError is returned for an edge not present in the order
// lifecycle table. No side effect has been attempted.
type TransicionInvalidaError struct {
	Desde string
	Hacia string
}

func (e *TransicionInvalidaError) Error() string {
	return fmt.Sprintf("transición de estado inválida: %s → %s", e.Desde, e.Hacia)
}

func (e *TransicionInvalidaError) Is(target error) bool { return target == ErrTransicionInvalida }

// Faltante is the gap between requested and available stock for one product.
type Faltante struct {
	ProductoID uuid.UUID `json:"producto_id"`
	Producto   string    `json:"producto,omitempty"`
	Requerido  int       `json:"requerido"`
	Disponible int       `json:"disponible"`
}

// StockInsuficienteError carries every shortfall found, not just the first.
type StockInsuficienteError struct {
	Faltantes []Faltante
}

func (e *StockInsuficienteError) Error() string {
	partes := make([]string, 0, len(e.Faltantes))
	for _, f := range e.Faltantes {
		nombre := f.Producto
		if nombre == "" {
			nombre = f.ProductoID.String()
		}
		partes = append(partes, fmt.Sprintf("%s (requerido %d, disponible %d)", nombre, f.Requerido, f.Disponible))
	}
	return "stock insuficiente: " + strings.Join(partes, "; ")
}

func (e *StockInsuficienteError) Is(target error) bool { return target == ErrStockInsuficiente }

// CompensacionFallidaError means a reversal of a partially applied operation
// failed. The ledger or the sales table may be inconsistent; the engine does
// not retry.
type CompensacionFallidaError struct {
	Tipo      string
	Operacion string
	Causa     error
	Fallos    []error
}

func (e *CompensacionFallidaError) Error() string {
	fallos := make([]string, 0, len(e.Fallos))
	for _, f := range e.Fallos {
		fallos = append(fallos, f.Error())
	}
	return fmt.Sprintf("compensación fallida en %s: %s (causa original: %v)",
		e.Operacion, strings.Join(fallos, "; "), e.Causa)
}

func (e *CompensacionFallidaError) Is(target error) bool { return target == ErrCompensacionFallida }
