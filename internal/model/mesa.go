package model

import "time"

// Table states.
const (
	MesaLibre     = "libre"
	MesaOcupada   = "ocupada"
	MesaReservada = "reservada"
)

// Mesa is a physical table. Its Estado is a projection of the orders that
// reference it, except for an explicit "reservada".
type Mesa struct {
	Numero    int    `gorm:"primaryKey;autoIncrement:false"`
	Salon     string `gorm:"not null;default:'principal'"`
	Capacidad int    `gorm:"not null;default:4"`
	Estado    string `gorm:"not null;default:'libre'"`
	UpdatedAt time.Time
}

func (Mesa) TableName() string { return "mesas" }
