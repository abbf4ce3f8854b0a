package domain

// OrderRepository описывает требования к хранилищу заказов.
// Хранилище работает со снимками: изменения объекта после Save не видны другим читателям.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе со строками.
	Create(order *Order) error
	// CreateAll сохраняет пачку новых заказов атомарно: либо все, либо ни одного.
	CreateAll(orders []*Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id OrderID) (*Order, error)
	// ListByPointOfSale возвращает заказы точки продаж, новые первыми; limit <= 0 — без ограничения.
	ListByPointOfSale(id PointOfSaleID, limit int) ([]*Order, error)
	// ListByDistributor возвращает заказы дистрибьютора, новые первыми.
	ListByDistributor(id DistributorID, limit int) ([]*Order, error)
	// Save атомарно сохраняет заказ и его строки с учётом optimistic locking.
	// При устаревшей версии возвращает ErrVersionConflict.
	Save(order *Order) error
}

// DistributorRepository хранит дистрибьюторов. Номер телефона уникален.
type DistributorRepository interface {
	Create(distributor *Distributor) error
	Get(id DistributorID) (*Distributor, error)
	GetByPhoneNumber(phoneNumber string) (*Distributor, error)
	Save(distributor *Distributor) error
}

// PointOfSaleRepository хранит точки продаж вместе с назначениями.
// Save обязан отвечать ErrAlreadyAssigned на нарушение уникальности
// (точка, дистрибьютор, категория).
type PointOfSaleRepository interface {
	Create(pointOfSale *PointOfSale) error
	Get(id PointOfSaleID) (*PointOfSale, error)
	GetByPhoneNumber(phoneNumber string) (*PointOfSale, error)
	Save(pointOfSale *PointOfSale) error
}

// ProductRepository — каталог продуктов.
type ProductRepository interface {
	Create(product *Product) error
	Get(id ProductID) (*Product, error)
	GetByExternalID(externalID string) (*Product, error)
}
