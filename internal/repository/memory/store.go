// Package memory implements every repository over process memory. It backs
// the unit tests and the STORE_DRIVER=memory mode; it honours the same
// uniqueness and version semantics as the postgres schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/google/uuid"
)

type itemRow struct {
	item model.PedidoItem
	seq  int64
}

type pedidoRow struct {
	pedido model.Pedido
	seq    int64
}

type db struct {
	mu        sync.RWMutex
	seq       int64
	productos map[uuid.UUID]model.Producto
	filas     map[uuid.UUID]model.FilaInventario
	pedidos   map[uuid.UUID]pedidoRow
	items     map[uuid.UUID]itemRow
	mesas     map[int]model.Mesa
	ventas    map[uuid.UUID]model.Venta
}

// NewStore returns an empty in-memory Store.
func NewStore() *repository.Store {
	d := &db{
		productos: make(map[uuid.UUID]model.Producto),
		filas:     make(map[uuid.UUID]model.FilaInventario),
		pedidos:   make(map[uuid.UUID]pedidoRow),
		items:     make(map[uuid.UUID]itemRow),
		mesas:     make(map[int]model.Mesa),
		ventas:    make(map[uuid.UUID]model.Venta),
	}
	return &repository.Store{
		Productos:  &productoRepo{d},
		Inventario: &inventarioRepo{d},
		Pedidos:    &pedidoRepo{d},
		Mesas:      &mesaRepo{d},
		Ventas:     &ventaRepo{d},
		Ping:       func(context.Context) error { return nil },
	}
}

func (d *db) next() int64 {
	d.seq++
	return d.seq
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ── Productos ────────────────────────────────────────────────────────────────

type productoRepo struct{ d *db }

func (r *productoRepo) Create(_ context.Context, p *model.Producto) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := r.d.productos[p.ID]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.d.productos[p.ID] = *p
	return nil
}

func (r *productoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *productoRepo) List(_ context.Context) ([]model.Producto, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]model.Producto, 0, len(r.d.productos))
	for _, p := range r.d.productos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

// ── Inventario ───────────────────────────────────────────────────────────────

type inventarioRepo struct{ d *db }

func cloneFila(f model.FilaInventario) *model.FilaInventario {
	f.StockMinimo = copyInt(f.StockMinimo)
	f.StockMaximo = copyInt(f.StockMaximo)
	f.Producto = nil
	return &f
}

func (r *inventarioRepo) FindByProductoFecha(_ context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, f := range r.d.filas {
		if f.ProductoID == productoID && f.Fecha.Equal(fecha) {
			return cloneFila(f), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *inventarioRepo) FindUltima(_ context.Context, productoID uuid.UUID) (*model.FilaInventario, error) {
	return r.ultima(productoID, nil)
}

func (r *inventarioRepo) FindAnterior(_ context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error) {
	return r.ultima(productoID, &fecha)
}

func (r *inventarioRepo) ultima(productoID uuid.UUID, antes *time.Time) (*model.FilaInventario, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var mejor *model.FilaInventario
	for _, f := range r.d.filas {
		if f.ProductoID != productoID {
			continue
		}
		if antes != nil && !f.Fecha.Before(*antes) {
			continue
		}
		if mejor == nil || f.Fecha.After(mejor.Fecha) {
			mejor = cloneFila(f)
		}
	}
	if mejor == nil {
		return nil, repository.ErrNotFound
	}
	return mejor, nil
}

func (r *inventarioRepo) Create(_ context.Context, f *model.FilaInventario) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existente := range r.d.filas {
		if existente.ProductoID == f.ProductoID && existente.Fecha.Equal(f.Fecha) {
			return repository.ErrDuplicate
		}
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Version == 0 {
		f.Version = 1
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	r.d.filas[f.ID] = *cloneFila(*f)
	return nil
}

func (r *inventarioRepo) UpdateVersioned(_ context.Context, f *model.FilaInventario, version int) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	actual, ok := r.d.filas[f.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if actual.Version != version {
		return repository.ErrVersionConflict
	}
	f.Version = version + 1
	f.UpdatedAt = time.Now()
	r.d.filas[f.ID] = *cloneFila(*f)
	return nil
}

// ── Pedidos ──────────────────────────────────────────────────────────────────

type pedidoRepo struct{ d *db }

// cargar returns a copy of the order with its items, ordered by insertion.
// Caller holds the read lock.
func (r *pedidoRepo) cargar(row pedidoRow) model.Pedido {
	p := row.pedido
	rows := make([]itemRow, 0)
	for _, ir := range r.d.items {
		if ir.item.PedidoID == p.ID {
			rows = append(rows, ir)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	p.Items = make([]model.PedidoItem, 0, len(rows))
	for _, ir := range rows {
		it := ir.item
		if prod, ok := r.d.productos[it.ProductoID]; ok {
			prodCopy := prod
			it.Producto = &prodCopy
		}
		p.Items = append(p.Items, it)
	}
	return p
}

func (r *pedidoRepo) Create(_ context.Context, p *model.Pedido) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := r.d.pedidos[p.ID]; ok {
		return repository.ErrDuplicate
	}
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.Items = nil
	r.d.pedidos[p.ID] = pedidoRow{pedido: stored, seq: r.d.next()}
	return nil
}

func (r *pedidoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pedido, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	row, ok := r.d.pedidos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := r.cargar(row)
	return &p, nil
}

func (r *pedidoRepo) List(_ context.Context, filter repository.PedidoFilter) ([]model.Pedido, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	rows := make([]pedidoRow, 0)
	for _, row := range r.d.pedidos {
		if filter.MesaNumero != nil && row.pedido.MesaNumero != *filter.MesaNumero {
			continue
		}
		if filter.Estado != "" && row.pedido.Estado != filter.Estado {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	total := int64(len(rows))
	start := (page - 1) * limit
	if start > len(rows) {
		start = len(rows)
	}
	end := min(start+limit, len(rows))

	out := make([]model.Pedido, 0, end-start)
	for _, row := range rows[start:end] {
		out = append(out, r.cargar(row))
	}
	return out, total, nil
}

func (r *pedidoRepo) CountByMesaEstado(_ context.Context, mesaNumero int, estado string) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var n int64
	for _, row := range r.d.pedidos {
		if row.pedido.MesaNumero == mesaNumero && row.pedido.Estado == estado {
			n++
		}
	}
	return n, nil
}

func (r *pedidoRepo) UpdateEstado(_ context.Context, id uuid.UUID, estado string, version int) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	row, ok := r.d.pedidos[id]
	if !ok {
		return repository.ErrNotFound
	}
	if row.pedido.Version != version {
		return repository.ErrVersionConflict
	}
	row.pedido.Estado = estado
	row.pedido.Version = version + 1
	row.pedido.UpdatedAt = time.Now()
	r.d.pedidos[id] = row
	return nil
}

func (r *pedidoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.pedidos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.pedidos, id)
	for itemID, ir := range r.d.items {
		if ir.item.PedidoID == id {
			delete(r.d.items, itemID)
		}
	}
	return nil
}

func (r *pedidoRepo) CreateItem(_ context.Context, it *model.PedidoItem) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.pedidos[it.PedidoID]; !ok {
		return repository.ErrNotFound
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	it.CreatedAt = time.Now()
	stored := *it
	stored.Producto = nil
	r.d.items[it.ID] = itemRow{item: stored, seq: r.d.next()}
	return nil
}

func (r *pedidoRepo) FindItem(_ context.Context, id uuid.UUID) (*model.PedidoItem, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	ir, ok := r.d.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	it := ir.item
	return &it, nil
}

func (r *pedidoRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.items, id)
	return nil
}

func (r *pedidoRepo) DeleteItemsByPedido(_ context.Context, pedidoID uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, ir := range r.d.items {
		if ir.item.PedidoID == pedidoID {
			delete(r.d.items, id)
		}
	}
	return nil
}

// ── Mesas ────────────────────────────────────────────────────────────────────

type mesaRepo struct{ d *db }

func (r *mesaRepo) Create(_ context.Context, m *model.Mesa) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.mesas[m.Numero]; ok {
		return repository.ErrDuplicate
	}
	m.UpdatedAt = time.Now()
	r.d.mesas[m.Numero] = *m
	return nil
}

func (r *mesaRepo) FindByNumero(_ context.Context, numero int) (*model.Mesa, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	m, ok := r.d.mesas[numero]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *mesaRepo) List(_ context.Context) ([]model.Mesa, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]model.Mesa, 0, len(r.d.mesas))
	for _, m := range r.d.mesas {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

func (r *mesaRepo) UpdateEstado(_ context.Context, numero int, estado string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	m, ok := r.d.mesas[numero]
	if !ok {
		return repository.ErrNotFound
	}
	m.Estado = estado
	m.UpdatedAt = time.Now()
	r.d.mesas[numero] = m
	return nil
}

// ── Ventas ───────────────────────────────────────────────────────────────────

type ventaRepo struct{ d *db }

func (r *ventaRepo) Create(_ context.Context, v *model.Venta) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existente := range r.d.ventas {
		if existente.PedidoID == v.PedidoID {
			return repository.ErrDuplicate
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if _, ok := r.d.ventas[v.ID]; ok {
		return repository.ErrDuplicate
	}
	v.CreatedAt = time.Now()
	r.d.ventas[v.ID] = *v
	return nil
}

func (r *ventaRepo) FindByPedidoID(_ context.Context, pedidoID uuid.UUID) (*model.Venta, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, v := range r.d.ventas {
		if v.PedidoID == pedidoID {
			out := v
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ventaRepo) CountByPedidoID(_ context.Context, pedidoID uuid.UUID) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var n int64
	for _, v := range r.d.ventas {
		if v.PedidoID == pedidoID {
			n++
		}
	}
	return n, nil
}

func (r *ventaRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.ventas[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.ventas, id)
	return nil
}

var (
	_ repository.ProductoRepository   = (*productoRepo)(nil)
	_ repository.InventarioRepository = (*inventarioRepo)(nil)
	_ repository.PedidoRepository     = (*pedidoRepo)(nil)
	_ repository.MesaRepository       = (*mesaRepo)(nil)
	_ repository.VentaRepository      = (*ventaRepo)(nil)
)
