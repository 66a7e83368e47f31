package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/reservation"
)

type deliveryFixture struct {
	materials    *fakeMaterialRepo
	balances     *fakeBalanceRepo
	movements    *fakeMovementRepo
	reservations *fakeReservationRepo
	fifoLayers   *fakeFIFORepo
	waRecords    *fakeWARepo
	idempotency  *fakeIdempotencyStore
	service      *GoodsDeliveryService
}

func newDeliveryFixture() *deliveryFixture {
	f := &deliveryFixture{
		materials:    newFakeMaterialRepo(),
		balances:     newFakeBalanceRepo(),
		movements:    newFakeMovementRepo(),
		reservations: newFakeReservationRepo(),
		fifoLayers:   newFakeFIFORepo(),
		waRecords:    newFakeWARepo(),
		idempotency:  newFakeIdempotencyStore(),
	}
	f.service = NewGoodsDeliveryService(f.materials, f.balances, f.movements,
		f.reservations, f.fifoLayers, f.waRecords, f.idempotency, zap.NewNop())
	return f
}

func (f *deliveryFixture) addMaterial(t *testing.T, method catalog.CostingMethod,
	opts ...catalog.MaterialOption) *catalog.Material {
	t.Helper()
	opts = append(opts, catalog.WithFixedCostPrice(dec("5")))
	m, err := catalog.NewMaterial("MAT-"+uuid.NewString()[:8], "Test Material", method, opts...)
	require.NoError(t, err)
	f.materials.add(m)
	return m
}

// seedStock puts unrestricted stock on a balance row
func (f *deliveryFixture) seedStock(t *testing.T, materialID, locationID uuid.UUID, qty string) {
	t.Helper()
	balance, err := f.balances.GetOrCreate(context.Background(), materialID, locationID, nil, "")
	require.NoError(t, err)
	err = balance.ApplyDelta(inventory.CategoryDeltas{Unrestricted: dec(qty)},
		inventory.DeltaModeStrict, inventory.MovementSource{DocType: "SEED", DocNo: "SEED"})
	require.NoError(t, err)
}

// seedLayer puts a FIFO cost layer in place
func (f *deliveryFixture) seedLayer(t *testing.T, materialID uuid.UUID, seq int64, cost, qty string) {
	t.Helper()
	layer, err := costing.NewFIFOCostLayer(materialID, nil, seq, dec(cost), dec(qty))
	require.NoError(t, err)
	require.NoError(t, f.fifoLayers.Create(context.Background(), layer))
}

func deliveryDoc(docNo string, lines ...DeliveryLine) DeliveryDocument {
	return DeliveryDocument{DocID: uuid.New(), DocNo: docNo, ParentNo: "SO-2001", Lines: lines}
}

func TestGoodsDeliveryService_CommitCreated(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()

	t.Run("allocates from unrestricted and reserves stock", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFIFO)
		f.seedStock(t, material.GetID(), locationID, "50")
		f.seedLayer(t, material.GetID(), 1, "10", "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("6"),
		})

		result, err := f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.Equal(t, reservation.CodeOK, result.Lines[0].Code)

		allocated := f.reservations.byStatus(reservation.StatusAllocated)
		require.Len(t, allocated, 1)
		assert.Equal(t, reservation.DocTypeGoodsDelivery, allocated[0].DocType)
		assert.True(t, allocated[0].ReservedQty.Equal(dec("6")))

		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.UnrestrictedQty.Equal(dec("44")))
		assert.True(t, balance.ReservedQty.Equal(dec("6")))
		assert.True(t, balance.BalanceQty.Equal(dec("50")))

		require.Len(t, f.movements.movements, 1)
		assert.Equal(t, inventory.MovementKindUnrestrictedToReserved, f.movements.movements[0].Kind)
	})

	t.Run("duplicate pending records stop the document with code 400", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		// two pendings serving the same demand line
		demandLineID := uuid.New()
		for i := 0; i < 2; i++ {
			record, err := reservation.NewReservationRecord(reservation.DocTypeSalesOrder,
				reservation.StatusPending, material.GetID(), nil, locationID,
				dec("5"), uuid.New(), demandLineID)
			require.NoError(t, err)
			f.reservations.add(record)
		}

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			PreviousQty:  dec("0"),
			RequestedQty: dec("5"),
		})

		result, err := f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.Equal(t, reservation.CodeIntegrityViolation, result.Lines[0].Code)

		// zero mutations
		assert.Empty(t, f.movements.movements)
		assert.Empty(t, f.reservations.byStatus(reservation.StatusAllocated))
		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.ReservedQty.IsZero())
	})

	t.Run("a failing line rolls the whole document back", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001",
			DeliveryLine{
				LineID:       uuid.New(),
				MaterialID:   material.GetID(),
				LocationID:   locationID,
				PreviousQty:  dec("0"),
				RequestedQty: dec("6"),
			},
			DeliveryLine{
				LineID:       uuid.New(),
				MaterialID:   material.GetID(),
				LocationID:   locationID,
				PreviousQty:  dec("0"),
				RequestedQty: dec("4"),
			})
		f.movements.failAt = 2 // second line's movement append fails

		_, err := f.service.CommitCreated(ctx, doc)
		require.Error(t, err)

		// the first line's work is unwound with the second's
		assert.Empty(t, f.movements.movements)
		assert.Empty(t, f.reservations.byStatus(reservation.StatusAllocated))
		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.UnrestrictedQty.Equal(dec("50")))
		assert.True(t, balance.ReservedQty.IsZero())
		assert.True(t, balance.BalanceQty.Equal(dec("50")))
	})

	t.Run("shrinking a delivery releases stock back to unrestricted", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			PreviousQty:  dec("0"),
			RequestedQty: dec("10"),
		})
		_, err := f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)

		doc.Lines[0].PreviousQty = dec("10")
		doc.Lines[0].RequestedQty = dec("4")
		_, err = f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)

		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.ReservedQty.Equal(dec("4")))
		assert.True(t, balance.UnrestrictedQty.Equal(dec("46")))
	})
}

func TestGoodsDeliveryService_CommitDelivered(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()

	t.Run("delivery consumes reservation, costing and stock", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFIFO)
		f.seedStock(t, material.GetID(), locationID, "50")
		f.seedLayer(t, material.GetID(), 1, "10", "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("6"),
		})
		_, err := f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)

		result, err := f.service.CommitDelivered(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, reservation.CodeOK, result.Lines[0].Code)

		delivered := f.reservations.byStatus(reservation.StatusDelivered)
		require.Len(t, delivered, 1)
		assert.True(t, delivered[0].DeliveredQty.Equal(dec("6")))

		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.ReservedQty.IsZero())
		assert.True(t, balance.UnrestrictedQty.Equal(dec("44")))
		assert.True(t, balance.BalanceQty.Equal(dec("44")))

		// oldest layer consumed
		require.Len(t, f.fifoLayers.layers, 1)
		assert.True(t, f.fifoLayers.layers[0].AvailableQty.Equal(dec("44")))

		// delivery movement priced at the consumed layer's cost
		var deliveryMovement *inventory.InventoryMovement
		for _, m := range f.movements.movements {
			if m.Kind == inventory.MovementKindDelivery {
				deliveryMovement = m
			}
		}
		require.NotNil(t, deliveryMovement)
		assert.True(t, deliveryMovement.Quantity.Equal(dec("6")))
		assert.True(t, deliveryMovement.UnitPrice.Equal(dec("10")))
		assert.True(t, deliveryMovement.TotalPrice.Equal(dec("60")))
	})

	t.Run("a failing line restores reservations, costing and stock", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFIFO)
		f.seedStock(t, material.GetID(), locationID, "50")
		f.seedLayer(t, material.GetID(), 1, "10", "50")

		line1 := DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("6"),
		}
		line2 := DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("4"),
		}
		doc := deliveryDoc("GD-0001", line1, line2)

		created := doc
		created.Lines = doc.Lines[:1]
		_, err := f.service.CommitCreated(ctx, created)
		require.NoError(t, err)
		f.movements.failAt = f.movements.created + 2 // second line's movement append fails

		_, err = f.service.CommitDelivered(ctx, doc)
		require.Error(t, err)

		// consumed FIFO quantity comes back
		require.Len(t, f.fifoLayers.layers, 1)
		assert.True(t, f.fifoLayers.layers[0].AvailableQty.Equal(dec("50")))

		// the first line's reservation is Allocated again, nothing Delivered
		assert.Empty(t, f.reservations.byStatus(reservation.StatusDelivered))
		allocated := f.reservations.byStatus(reservation.StatusAllocated)
		require.Len(t, allocated, 1)
		assert.True(t, allocated[0].OpenQty.Equal(dec("6")))
		assert.True(t, allocated[0].DeliveredQty.IsZero())

		// balance back to the post-allocation state
		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.UnrestrictedQty.Equal(dec("44")))
		assert.True(t, balance.ReservedQty.Equal(dec("6")))

		// only the allocation movement survives
		require.Len(t, f.movements.movements, 1)
		assert.Equal(t, inventory.MovementKindUnrestrictedToReserved, f.movements.movements[0].Kind)
	})

	t.Run("over-delivery beyond tolerance rejected", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed,
			catalog.WithOverDeliveryTolerance(dec("10")))
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("12"), // max is 11
		})

		_, err := f.service.CommitDelivered(ctx, doc)
		require.Error(t, err)
		assert.Empty(t, f.movements.movements)
	})

	t.Run("delivery within tolerance accepted", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed,
			catalog.WithOverDeliveryTolerance(dec("10")))
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("11"),
		})

		result, err := f.service.CommitDelivered(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, reservation.CodeOK, result.Lines[0].Code)
	})

	t.Run("duplicate delivery commit is idempotent", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			OrderedQty:   dec("10"),
			PreviousQty:  dec("0"),
			RequestedQty: dec("5"),
		})

		_, err := f.service.CommitDelivered(ctx, doc)
		require.NoError(t, err)
		result, err := f.service.CommitDelivered(ctx, doc)
		require.NoError(t, err)

		assert.True(t, result.AlreadyProcessed)
		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.UnrestrictedQty.Equal(dec("45")))
	})
}

func TestGoodsDeliveryService_CommitCancelCreated(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()

	t.Run("cancel returns reserved stock to unrestricted", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			PreviousQty:  dec("0"),
			RequestedQty: dec("10"),
		})
		_, err := f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)

		doc.Lines[0].PreviousQty = dec("10")
		result, err := f.service.CommitCancelCreated(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, reservation.CodeOK, result.Lines[0].Code)

		cancelled := f.reservations.byStatus(reservation.StatusCancelled)
		require.Len(t, cancelled, 1)

		balance, err := f.balances.FindByKey(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		assert.True(t, balance.ReservedQty.IsZero())
		assert.True(t, balance.UnrestrictedQty.Equal(dec("50")))
	})

	t.Run("cancel folds a sales-order slice back to pending", func(t *testing.T) {
		f := newDeliveryFixture()
		material := f.addMaterial(t, catalog.CostingMethodFixed)
		f.seedStock(t, material.GetID(), locationID, "50")

		doc := deliveryDoc("GD-0001", DeliveryLine{
			LineID:       uuid.New(),
			MaterialID:   material.GetID(),
			LocationID:   locationID,
			PreviousQty:  dec("0"),
			RequestedQty: dec("8"),
		})

		// a pending sales order is consumed by the allocation
		so, err := reservation.NewReservationRecord(reservation.DocTypeSalesOrder,
			reservation.StatusPending, material.GetID(), nil, locationID,
			dec("8"), uuid.New(), uuid.New())
		require.NoError(t, err)
		f.reservations.add(so)
		// the pending stock is already reserved
		balance, err := f.balances.GetOrCreate(ctx, material.GetID(), locationID, nil, "")
		require.NoError(t, err)
		require.NoError(t, balance.ApplyDelta(inventory.CategoryDeltas{
			Unrestricted: dec("-8"), Reserved: dec("8"),
		}, inventory.DeltaModeStrict, inventory.MovementSource{DocType: "SEED", DocNo: "SEED"}))

		_, err = f.service.CommitCreated(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusAllocated, so.Status)

		doc.Lines[0].PreviousQty = dec("8")
		_, err = f.service.CommitCancelCreated(ctx, doc)
		require.NoError(t, err)

		// demand returns to pending, stock stays reserved
		pending := f.reservations.byStatus(reservation.StatusPending)
		require.Len(t, pending, 1)
		assert.Equal(t, reservation.DocTypeSalesOrder, pending[0].DocType)
		assert.True(t, pending[0].OpenQty.Equal(dec("8")))
		assert.True(t, balance.ReservedQty.Equal(dec("8")))
	})
}
