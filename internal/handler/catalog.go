package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// CatalogHandler serves the tenant's products, categories and customers.
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler { return &CatalogHandler{} }

// ----- DTOs -----

type productReq struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Price         float64 `json:"price" validate:"gte=0"`
	CategoryID    *int64  `json:"category_id" validate:"omitempty,gt=0"`
	TrackStock    bool    `json:"track_stock"`
	StockQuantity float64 `json:"stock_quantity"`
	ExpiryDate    *string `json:"expiry_date"`
	Barcode       *string `json:"barcode" validate:"omitempty,max=64"`
	ImagePath     *string `json:"image_path"`
}

func (r productReq) product() model.Product {
	return model.Product{
		Name:          r.Name,
		Price:         r.Price,
		CategoryID:    r.CategoryID,
		TrackStock:    r.TrackStock,
		StockQuantity: r.StockQuantity,
		ExpiryDate:    r.ExpiryDate,
		Barcode:       r.Barcode,
		ImagePath:     r.ImagePath,
	}
}

type nameReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

type customerReq struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address"`
}

// ----- products -----

// ListProducts: optional ?category_id, ?q (name or barcode), ?barcode.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	catID, err := queryInt64(c, "category_id")
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.Products.List(ctx, repository.ProductFilter{
		CategoryID: catID,
		Query:      c.QueryParam("q"),
		Barcode:    c.QueryParam("barcode"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": list})
}

// LowStock lists tracked products at or below ?threshold (default 5).
func (h *CatalogHandler) LowStock(c echo.Context) error {
	threshold := 5.0
	if raw := c.QueryParam("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return writeError(c, repository.Invalid("threshold", "must be a number"))
		}
		threshold = f
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.Products.LowStock(ctx, threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": list})
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := store.Products.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req productReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := req.product()
	if err := store.Products.Create(ctx, &p); err != nil {
		return writeError(c, err)
	}
	created, err := store.Products.GetByID(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req productReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := req.product()
	p.ID = id
	if err := store.Products.Update(ctx, &p); err != nil {
		return writeError(c, err)
	}
	updated, err := store.Products.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := store.Products.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- categories -----

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.Categories.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": list})
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req nameReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	cat := model.Category{Name: req.Name}
	if err := store.Categories.Create(ctx, &cat); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) RenameCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req nameReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	cat, err := store.Categories.Rename(ctx, id, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory answers 409 while products still reference the category.
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := store.Categories.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- customers -----

func (h *CatalogHandler) ListCustomers(c echo.Context) error {
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.Customers.List(ctx, c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"customers": list})
}

func (h *CatalogHandler) CreateCustomer(c echo.Context) error {
	var req customerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	cu := model.Customer{Name: strings.TrimSpace(req.Name), Phone: req.Phone, Email: req.Email, Address: req.Address}
	if err := store.Customers.Create(ctx, &cu); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cu)
}

func (h *CatalogHandler) UpdateCustomer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req customerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	cu := model.Customer{ID: id, Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address}
	if err := store.Customers.Update(ctx, &cu); err != nil {
		return writeError(c, err)
	}
	updated, err := store.Customers.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}
