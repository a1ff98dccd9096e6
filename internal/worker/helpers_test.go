package worker

import (
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/google/uuid"
)

func incidentePrueba() model.Incidente {
	return model.Incidente{
		ID:         uuid.New(),
		Tipo:       "cobrar",
		Operacion:  "cobrar 5b0e3c1a-7d4f-4a4e-9f51-0c8f3d2a9e11",
		Causa:      "stock insuficiente",
		Fallos:     []string{"reponer stock: ledger caído"},
		OcurridoEn: time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC),
	}
}
