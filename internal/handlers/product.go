package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
)

// ProductCatalog reads the product knowledge base
type ProductCatalog interface {
	List(ctx context.Context) ([]*models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
}

// ProductHandler exposes the product knowledge base to the blog generator form
type ProductHandler struct {
	products ProductCatalog
}

// NewProductHandler creates a new product handler
func NewProductHandler(products ProductCatalog) *ProductHandler {
	return &ProductHandler{products: products}
}

// List returns every product
// GET /api/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.products.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if products == nil {
		products = []*models.Product{}
	}

	return c.JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// Get returns one product
// GET /api/products/:id
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	product, err := h.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}
