package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

const orderColumns = `
	id, point_of_sale_id, distributor_id,
	delivery_city, delivery_street, delivery_zip_code,
	status, price_amount, price_currency,
	created_on, confirmed_on, rejected_on, delivered_on, canceled_on,
	version`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order *domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertOrder(ctx, tx, order.State())
	})
}

// CreateAll пишет пачку заказов в одной транзакции.
func (r *orderRepository) CreateAll(orders []*domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, order := range orders {
			if err := insertOrder(ctx, tx, order.State()); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertOrder(ctx context.Context, tx *sql.Tx, state domain.OrderState) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		state.ID.String(), state.PointOfSaleID.String(), state.DistributorID.String(),
		state.DeliveryAddress.City, state.DeliveryAddress.Street, state.DeliveryAddress.ZipCode,
		state.Status.String(), state.Price.Amount(), state.Price.Currency().String(),
		state.CreatedOn, nullTime(state.ConfirmedOn), nullTime(state.RejectedOn),
		nullTime(state.DeliveredOn), nullTime(state.CanceledOn),
		state.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s already exists", domain.ErrVersionConflict, state.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return insertOrderLines(ctx, tx, state.Lines)
}

func (r *orderRepository) Get(id domain.OrderID) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id.String())
	state, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if state.Lines, err = r.loadLines(ctx, state.ID); err != nil {
		return nil, err
	}
	return domain.RestoreOrder(state), nil
}

func (r *orderRepository) ListByPointOfSale(id domain.PointOfSaleID, limit int) ([]*domain.Order, error) {
	return r.list("point_of_sale_id", id.String(), limit)
}

func (r *orderRepository) ListByDistributor(id domain.DistributorID, limit int) ([]*domain.Order, error) {
	return r.list("distributor_id", id.String(), limit)
}

// list выбирает заказы по колонке-владельцу. column — константа из кода, не ввод пользователя.
func (r *orderRepository) list(column, value string, limit int) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1 ORDER BY created_on DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", value, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, value)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	states := make([]domain.OrderState, 0)
	for rows.Next() {
		state, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	orders := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		if state.Lines, err = r.loadLines(ctx, state.ID); err != nil {
			return nil, err
		}
		orders = append(orders, domain.RestoreOrder(state))
	}
	return orders, nil
}

// Save обновляет заказ с проверкой версии и целиком пересобирает строки в той же транзакции.
func (r *orderRepository) Save(order *domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := order.State()
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET delivery_city = $1,
			    delivery_street = $2,
			    delivery_zip_code = $3,
			    status = $4,
			    price_amount = $5,
			    price_currency = $6,
			    confirmed_on = $7,
			    rejected_on = $8,
			    delivered_on = $9,
			    canceled_on = $10,
			    version = version + 1
			WHERE id = $11
			  AND version = $12
		`,
			state.DeliveryAddress.City, state.DeliveryAddress.Street, state.DeliveryAddress.ZipCode,
			state.Status.String(), state.Price.Amount(), state.Price.Currency().String(),
			nullTime(state.ConfirmedOn), nullTime(state.RejectedOn),
			nullTime(state.DeliveredOn), nullTime(state.CanceledOn),
			state.ID.String(), state.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := checkVersionedUpdate(ctx, tx, res, "orders", state.ID.String(), domain.ErrOrderNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, state.ID.String()); err != nil {
			return fmt.Errorf("delete order lines: %w", err)
		}
		return insertOrderLines(ctx, tx, state.Lines)
	})
	if err != nil {
		return err
	}

	order.IncrementVersion()
	return nil
}

func insertOrderLines(ctx context.Context, tx *sql.Tx, lines []domain.OrderLineState) error {
	for position, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (
				id, order_id, position, product_id, external_product_id, product_name, category,
				unit_price_amount, currency, quantity, sub_total_amount, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			line.ID.String(), line.OrderID.String(), position,
			line.Product.ProductID.String(), line.Product.ExternalID, line.Product.Name, line.Product.Category.String(),
			line.Product.UnitPrice.Amount(), line.SubTotal.Currency().String(),
			line.Quantity.Int(), line.SubTotal.Amount(), line.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateProduct, line.Product.ProductID)
			}
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID domain.OrderID) ([]domain.OrderLineState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, external_product_id, product_name, category,
		       unit_price_amount, currency, quantity, sub_total_amount, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID.String())
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLineState, 0)
	for rows.Next() {
		var (
			id, productID       uuid.UUID
			category, currency  string
			unitPrice, subTotal decimal.Decimal
			quantity            int
			line                domain.OrderLineState
		)
		if err := rows.Scan(
			&id, &productID, &line.Product.ExternalID, &line.Product.Name, &category,
			&unitPrice, &currency, &quantity, &subTotal, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}

		line.ID = domain.OrderLineID(id)
		line.OrderID = orderID
		line.Product.ProductID = domain.ProductID(productID)
		line.CreatedAt = line.CreatedAt.UTC()
		if line.Product.Category, err = domain.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("decode order line category: %w", err)
		}
		if line.Quantity, err = domain.NewQuantity(quantity); err != nil {
			return nil, fmt.Errorf("decode order line quantity: %w", err)
		}
		if line.Product.UnitPrice, err = moneyColumns(unitPrice, currency); err != nil {
			return nil, err
		}
		if line.SubTotal, err = moneyColumns(subTotal, currency); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

func scanOrder(row rowScanner) (domain.OrderState, error) {
	var (
		state                                    domain.OrderState
		id, pointOfSaleID, distributorID         uuid.UUID
		status, currency                         string
		amount                                   decimal.Decimal
		confirmed, rejected, delivered, canceled sql.NullTime
	)
	if err := row.Scan(
		&id, &pointOfSaleID, &distributorID,
		&state.DeliveryAddress.City, &state.DeliveryAddress.Street, &state.DeliveryAddress.ZipCode,
		&status, &amount, &currency,
		&state.CreatedOn, &confirmed, &rejected, &delivered, &canceled,
		&state.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderState{}, err
		}
		return domain.OrderState{}, fmt.Errorf("scan order: %w", err)
	}

	var err error
	state.ID = domain.OrderID(id)
	state.PointOfSaleID = domain.PointOfSaleID(pointOfSaleID)
	state.DistributorID = domain.DistributorID(distributorID)
	state.CreatedOn = state.CreatedOn.UTC()
	state.ConfirmedOn = timePtr(confirmed)
	state.RejectedOn = timePtr(rejected)
	state.DeliveredOn = timePtr(delivered)
	state.CanceledOn = timePtr(canceled)
	if state.Status, err = domain.ParseStatus(status); err != nil {
		return domain.OrderState{}, fmt.Errorf("decode order status: %w", err)
	}
	if state.Price, err = moneyColumns(amount, currency); err != nil {
		return domain.OrderState{}, err
	}
	return state, nil
}

// checkVersionedUpdate различает «нет строки» и «устаревшая версия» после UPDATE ... AND version = $n.
// table — константа из кода.
func checkVersionedUpdate(ctx context.Context, tx *sql.Tx, res sql.Result, table, id string, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s exists: %w", table, err)
	}
	if !exists {
		return notFound
	}
	return domain.ErrVersionConflict
}

var _ domain.OrderRepository = (*orderRepository)(nil)
