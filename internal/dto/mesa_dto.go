package dto

type CrearMesaRequest struct {
	Numero    int    `json:"numero"    validate:"required,min=1"`
	Salon     string `json:"salon"     validate:"max=60"`
	Capacidad int    `json:"capacidad" validate:"omitempty,min=1,max=50"`
}

type CambiarEstadoMesaRequest struct {
	Estado string `json:"estado" validate:"required,oneof=libre ocupada reservada"`
}

type MesaResponse struct {
	Numero    int    `json:"numero"`
	Salon     string `json:"salon"`
	Capacidad int    `json:"capacidad"`
	Estado    string `json:"estado"`
	UpdatedAt string `json:"updated_at"`
}

// ReconciliacionResponse reports one table's projection.
type ReconciliacionResponse struct {
	Numero         int    `json:"numero"`
	EstadoAnterior string `json:"estado_anterior"`
	Estado         string `json:"estado"`
	Cambio         bool   `json:"cambio"`
}

type ReconciliacionTotalResponse struct {
	Revisadas int                      `json:"revisadas"`
	Cambiadas int                      `json:"cambiadas"`
	Mesas     []ReconciliacionResponse `json:"mesas"`
}
