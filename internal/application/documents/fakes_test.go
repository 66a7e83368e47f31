package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/reservation"
	"github.com/stockops/backend/internal/domain/shared"
)

// in-memory fakes shared by the document service tests

type fakeMaterialRepo struct {
	items map[uuid.UUID]*catalog.Material
}

func newFakeMaterialRepo() *fakeMaterialRepo {
	return &fakeMaterialRepo{items: make(map[uuid.UUID]*catalog.Material)}
}

func (r *fakeMaterialRepo) add(m *catalog.Material) {
	r.items[m.GetID()] = m
}

func (r *fakeMaterialRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Material, error) {
	if m, ok := r.items[id]; ok {
		return m, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeMaterialRepo) FindByCode(_ context.Context, code string) (*catalog.Material, error) {
	for _, m := range r.items {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeBalanceRepo struct {
	rows map[string]*inventory.InventoryBalance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{rows: make(map[string]*inventory.InventoryBalance)}
}

func balanceKey(materialID, locationID uuid.UUID, batchID *uuid.UUID, serial string) string {
	batch := ""
	if batchID != nil {
		batch = batchID.String()
	}
	return materialID.String() + "|" + locationID.String() + "|" + batch + "|" + serial
}

func (r *fakeBalanceRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryBalance, error) {
	for _, b := range r.rows {
		if b.GetID() == id {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBalanceRepo) FindByKey(_ context.Context, materialID, locationID uuid.UUID,
	batchID *uuid.UUID, serial string) (*inventory.InventoryBalance, error) {
	if b, ok := r.rows[balanceKey(materialID, locationID, batchID, serial)]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBalanceRepo) FindByMaterial(_ context.Context, materialID uuid.UUID,
	_ shared.Filter) ([]inventory.InventoryBalance, error) {
	var out []inventory.InventoryBalance
	for _, b := range r.rows {
		if b.MaterialID == materialID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) FindByMaterialAndLocation(_ context.Context, materialID,
	locationID uuid.UUID) ([]inventory.InventoryBalance, error) {
	var out []inventory.InventoryBalance
	for _, b := range r.rows {
		if b.MaterialID == materialID && b.LocationID == locationID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) FindWithUnrestrictedStock(_ context.Context,
	materialID uuid.UUID) ([]inventory.InventoryBalance, error) {
	var out []inventory.InventoryBalance
	for _, b := range r.rows {
		if b.MaterialID == materialID && b.UnrestrictedQty.GreaterThan(decimal.Zero) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) GetOrCreate(_ context.Context, materialID, locationID uuid.UUID,
	batchID *uuid.UUID, serial string) (*inventory.InventoryBalance, error) {
	key := balanceKey(materialID, locationID, batchID, serial)
	if b, ok := r.rows[key]; ok {
		return b, nil
	}
	b, err := inventory.NewInventoryBalance(materialID, locationID, batchID, serial)
	if err != nil {
		return nil, err
	}
	r.rows[key] = b
	return b, nil
}

func (r *fakeBalanceRepo) Save(_ context.Context, balance *inventory.InventoryBalance) error {
	r.rows[balanceKey(balance.MaterialID, balance.LocationID, balance.BatchID, balance.SerialNumber)] = balance
	return nil
}

func (r *fakeBalanceRepo) SaveWithLock(ctx context.Context, balance *inventory.InventoryBalance) error {
	return r.Save(ctx, balance)
}

type fakeMovementRepo struct {
	movements []*inventory.InventoryMovement
	failNext  bool
	failAt    int // fail the Nth Create, 1-based; 0 disables
	created   int
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{}
}

func (r *fakeMovementRepo) Create(_ context.Context, movement *inventory.InventoryMovement) error {
	r.created++
	if r.failNext {
		r.failNext = false
		return errors.New("movement store unavailable")
	}
	if r.failAt > 0 && r.created == r.failAt {
		return errors.New("movement store unavailable")
	}
	r.movements = append(r.movements, movement)
	return nil
}

func (r *fakeMovementRepo) CreateBatch(ctx context.Context, movements []*inventory.InventoryMovement) error {
	for _, m := range movements {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMovementRepo) FindByTrxNo(_ context.Context, trxNo string) ([]inventory.InventoryMovement, error) {
	var out []inventory.InventoryMovement
	for _, m := range r.movements {
		if m.TrxNo == trxNo {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByMaterial(_ context.Context, materialID uuid.UUID,
	_ shared.Filter) ([]inventory.InventoryMovement, error) {
	var out []inventory.InventoryMovement
	for _, m := range r.movements {
		if m.MaterialID == materialID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, m := range r.movements {
		if m.GetID() == id {
			r.movements = append(r.movements[:i], r.movements[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type fakeFIFORepo struct {
	layers []*costing.FIFOCostLayer
}

func newFakeFIFORepo() *fakeFIFORepo {
	return &fakeFIFORepo{}
}

func (r *fakeFIFORepo) matches(l *costing.FIFOCostLayer, materialID uuid.UUID, batchID *uuid.UUID) bool {
	if l.MaterialID != materialID {
		return false
	}
	if batchID == nil {
		return l.BatchID == nil
	}
	return l.BatchID != nil && *l.BatchID == *batchID
}

func (r *fakeFIFORepo) FindByMaterial(_ context.Context, materialID uuid.UUID,
	batchID *uuid.UUID) ([]costing.FIFOCostLayer, error) {
	var out []costing.FIFOCostLayer
	for _, l := range r.layers {
		if r.matches(l, materialID, batchID) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeFIFORepo) FindAvailable(_ context.Context, materialID uuid.UUID,
	batchID *uuid.UUID) ([]costing.FIFOCostLayer, error) {
	var out []costing.FIFOCostLayer
	for _, l := range r.layers {
		if r.matches(l, materialID, batchID) && !l.IsExhausted() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeFIFORepo) Create(_ context.Context, layer *costing.FIFOCostLayer) error {
	r.layers = append(r.layers, layer)
	return nil
}

func (r *fakeFIFORepo) Save(_ context.Context, layer *costing.FIFOCostLayer) error {
	for i, l := range r.layers {
		if l.GetID() == layer.GetID() {
			r.layers[i] = layer
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *fakeFIFORepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, l := range r.layers {
		if l.GetID() == id {
			r.layers = append(r.layers[:i], r.layers[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type fakeWARepo struct {
	records []*costing.WeightedAverageRecord
}

func newFakeWARepo() *fakeWARepo {
	return &fakeWARepo{}
}

func (r *fakeWARepo) FindByMaterial(_ context.Context, materialID uuid.UUID,
	batchID *uuid.UUID) ([]costing.WeightedAverageRecord, error) {
	var out []costing.WeightedAverageRecord
	for _, rec := range r.records {
		if rec.MaterialID != materialID {
			continue
		}
		if batchID == nil && rec.BatchID != nil {
			continue
		}
		if batchID != nil && (rec.BatchID == nil || *rec.BatchID != *batchID) {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeWARepo) Create(_ context.Context, record *costing.WeightedAverageRecord) error {
	r.records = append(r.records, record)
	return nil
}

func (r *fakeWARepo) Save(_ context.Context, record *costing.WeightedAverageRecord) error {
	for i, rec := range r.records {
		if rec.GetID() == record.GetID() {
			r.records[i] = record
			return nil
		}
	}
	return shared.ErrNotFound
}

type fakeReservationRepo struct {
	records map[uuid.UUID]*reservation.ReservationRecord
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{records: make(map[uuid.UUID]*reservation.ReservationRecord)}
}

func (r *fakeReservationRepo) add(record *reservation.ReservationRecord) {
	r.records[record.GetID()] = record
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*reservation.ReservationRecord, error) {
	if rec, ok := r.records[id]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReservationRepo) FindAllocatedByTarget(_ context.Context, targetDocID uuid.UUID,
	materialID uuid.UUID, batchID *uuid.UUID, locationID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var out []*reservation.ReservationRecord
	for _, rec := range r.records {
		if rec.Status != reservation.StatusAllocated {
			continue
		}
		if rec.TargetDocID == nil || *rec.TargetDocID != targetDocID {
			continue
		}
		if rec.MaterialID != materialID || rec.LocationID != locationID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeReservationRepo) FindPendingByKey(_ context.Context, materialID uuid.UUID,
	batchID *uuid.UUID, locationID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var out []*reservation.ReservationRecord
	for _, rec := range r.records {
		if rec.Status != reservation.StatusPending {
			continue
		}
		if rec.MaterialID != materialID || rec.LocationID != locationID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeReservationRepo) FindByParentLine(_ context.Context,
	parentLineID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var out []*reservation.ReservationRecord
	for _, rec := range r.records {
		if rec.ParentLineID == parentLineID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) Create(_ context.Context, record *reservation.ReservationRecord) error {
	r.records[record.GetID()] = record
	return nil
}

func (r *fakeReservationRepo) Save(_ context.Context, record *reservation.ReservationRecord) error {
	r.records[record.GetID()] = record
	return nil
}

func (r *fakeReservationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.records[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *fakeReservationRepo) byStatus(status reservation.Status) []*reservation.ReservationRecord {
	var out []*reservation.ReservationRecord
	for _, rec := range r.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

type fakeIdempotencyStore struct {
	processed map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{processed: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.processed[key] {
		return false, nil
	}
	s.processed[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.processed[key], nil
}

func (s *fakeIdempotencyStore) Close() error {
	return nil
}
