package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koouhz/beefybeer-sub000/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                    "test",
		LedgerTimezone:         "UTC",
		LedgerMaxObservaciones: 2000,
		LedgerMaxReintentos:    5,
		StockCacheTTLSeg:       60,
	}
}

type cliente struct {
	t      *testing.T
	engine *gin.Engine
}

// do sends a JSON request and decodes the response into dest when given.
func (c cliente) do(method, path string, body any, dest any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	if dest != nil && w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
	}
	return w.Code
}

type idResp struct {
	ID string `json:"id"`
}

type stockResp struct {
	CantidadActual int `json:"cantidad_actual"`
}

type pedidoResp struct {
	ID                string   `json:"id"`
	Estado            string   `json:"estado"`
	SiguientesEstados []string `json:"siguientes_estados"`
	Items             []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type errorResp struct {
	Detail    string `json:"detail"`
	Faltantes []struct {
		Producto   string `json:"producto"`
		Requerido  int    `json:"requerido"`
		Disponible int    `json:"disponible"`
	} `json:"faltantes"`
}

// cicloPedido drives the order scenarios end to end over HTTP: stock load,
// order, payment, duplicate payment, shortfall and reversal.
func cicloPedido(t *testing.T, c cliente) {
	t.Helper()

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/v1/mesas", map[string]any{"numero": 5}, nil))

	var burger idResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/v1/productos",
		map[string]any{"nombre": "Burger", "precio_unitario": "10.00"}, &burger))

	var mov stockResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/v1/inventario/"+burger.ID+"/movimientos",
		map[string]any{"delta": 20, "motivo": "stock inicial"}, &mov))
	require.Equal(t, 20, mov.CantidadActual)

	// Opening an order occupies the table and does not touch stock.
	var o1 pedidoResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/v1/pedidos", map[string]any{
		"mesa_numero": 5,
		"personal_id": "3f0c9a4e-6a55-4a7b-9b1f-2d8e7c6b5a41",
		"items":       []map[string]any{{"producto_id": burger.ID, "cantidad": 2}},
	}, &o1))
	require.Equal(t, "pendiente", o1.Estado)
	require.Contains(t, o1.SiguientesEstados, "pagado")

	var mesas struct {
		Data []struct {
			Numero int    `json:"numero"`
			Estado string `json:"estado"`
		} `json:"data"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/mesas", nil, &mesas))
	require.Len(t, mesas.Data, 1)
	require.Equal(t, "ocupada", mesas.Data[0].Estado)

	var stock stockResp
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/inventario/"+burger.ID, nil, &stock))
	require.Equal(t, 20, stock.CantidadActual)

	// Payment.
	var pagado pedidoResp
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, "/v1/pedidos/"+o1.ID+"/estado",
		map[string]any{"estado": "pagado"}, &pagado))
	require.Equal(t, "pagado", pagado.Estado)

	var venta struct {
		MontoTotal string `json:"monto_total"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/pedidos/"+o1.ID+"/venta", nil, &venta))
	require.Equal(t, "20", venta.MontoTotal)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/inventario/"+burger.ID, nil, &stock))
	require.Equal(t, 18, stock.CantidadActual)

	// Duplicate payment.
	var dup errorResp
	require.Equal(t, http.StatusConflict, c.do(http.MethodPatch, "/v1/pedidos/"+o1.ID+"/estado",
		map[string]any{"estado": "pagado"}, &dup))
	require.NotEmpty(t, dup.Detail)

	// Shortfall.
	var o2 pedidoResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/v1/pedidos", map[string]any{
		"mesa_numero": 5,
		"personal_id": "3f0c9a4e-6a55-4a7b-9b1f-2d8e7c6b5a41",
		"items":       []map[string]any{{"producto_id": burger.ID, "cantidad": 25}},
	}, &o2))

	var disp struct {
		Disponible bool `json:"disponible"`
		Faltantes  []struct {
			Requerido  int `json:"requerido"`
			Disponible int `json:"disponible"`
		} `json:"faltantes"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/v1/inventario/disponibilidad", map[string]any{
		"items": []map[string]any{{"producto_id": burger.ID, "cantidad": 25}},
	}, &disp))
	require.False(t, disp.Disponible)
	require.Len(t, disp.Faltantes, 1)
	require.Equal(t, 25, disp.Faltantes[0].Requerido)
	require.Equal(t, 18, disp.Faltantes[0].Disponible)

	var falta errorResp
	require.Equal(t, http.StatusConflict, c.do(http.MethodPatch, "/v1/pedidos/"+o2.ID+"/estado",
		map[string]any{"estado": "pagado"}, &falta))
	require.Len(t, falta.Faltantes, 1)
	require.Equal(t, "Burger", falta.Faltantes[0].Producto)
	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/v1/pedidos/"+o2.ID+"/venta", nil, nil))

	// Deleting a paid order is refused.
	require.Equal(t, http.StatusConflict, c.do(http.MethodDelete, "/v1/pedidos/"+o1.ID, nil, nil))

	// Reversal.
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, "/v1/pedidos/"+o1.ID+"/estado",
		map[string]any{"estado": "pendiente"}, nil))
	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/v1/pedidos/"+o1.ID+"/venta", nil, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/inventario/"+burger.ID, nil, &stock))
	require.Equal(t, 20, stock.CantidadActual)

	require.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/v1/pedidos/"+o1.ID, nil, nil))
	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/v1/pedidos/"+o1.ID, nil, nil))

	// Reconciliation after the fact is a no-op.
	var rec struct {
		Revisadas int `json:"revisadas"`
		Cambiadas int `json:"cambiadas"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/v1/mesas/reconciliar", nil, &rec))
	require.Equal(t, 1, rec.Revisadas)
	require.Zero(t, rec.Cambiadas)
}
