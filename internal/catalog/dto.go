package catalog

type createProductRequest struct {
	SKU           string  `json:"sku" validate:"omitempty,min=3,max=20"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Price         float64 `json:"price" validate:"gte=0"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel int     `json:"min_stock_level" validate:"gte=0"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
	Weight        float64 `json:"weight" validate:"gte=0"`
	Dimensions    string  `json:"dimensions"`
	Active        *bool   `json:"active"`
}

func (r createProductRequest) draft() Draft {
	return Draft{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		ImageURL:      r.ImageURL,
		Weight:        r.Weight,
		Dimensions:    r.Dimensions,
		Active:        r.Active,
	}
}

type batchCreateRequest struct {
	Products []createProductRequest `json:"products" validate:"required,min=1,dive"`
}

type updateProductRequest struct {
	Version       *int64   `json:"version" validate:"required,gte=0"`
	SKU           *string  `json:"sku" validate:"omitempty,min=3,max=20"`
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int     `json:"stock_quantity" validate:"omitempty,gte=0"`
	MinStockLevel *int     `json:"min_stock_level" validate:"omitempty,gte=0"`
	ImageURL      *string  `json:"image_url"`
	Weight        *float64 `json:"weight" validate:"omitempty,gte=0"`
	Dimensions    *string  `json:"dimensions"`
	Active        *bool    `json:"active"`
}

func (r updateProductRequest) patch() Patch {
	return Patch{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		ImageURL:      r.ImageURL,
		Weight:        r.Weight,
		Dimensions:    r.Dimensions,
		Active:        r.Active,
	}
}

type listResponse struct {
	Items      []Product  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type countResponse struct {
	Category string `json:"category,omitempty"`
	Count    int64  `json:"count"`
}

type batchItemProblem struct {
	Index  int    `json:"index"`
	SKU    string `json:"sku,omitempty"`
	Detail string `json:"detail"`
}
