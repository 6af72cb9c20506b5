package handler

import (
	"net/http"

	"assetdesk/internal/middleware"
	"assetdesk/internal/model"
	"assetdesk/internal/service"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	inventoryService service.InventoryService
}

func NewProductHandler(inventoryService service.InventoryService) *ProductHandler {
	return &ProductHandler{inventoryService: inventoryService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		anyRole := middleware.RequireRole(model.RoleEmployee, model.RoleManager, model.RoleAdmin)
		products.GET("", anyRole, h.GetProducts)
		products.GET("/:id", anyRole, h.GetProduct)
		products.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateProduct)
	}
}

// GetProducts handles retrieving the asset catalog
// @Summary      Get products
// @Description  Retrieves the product catalog, optionally filtered to in-stock items
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        in_stock  query     bool  false  "Only products with quantity > 0"
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	inStockOnly := c.Query("in_stock") == "true"

	products, err := h.inventoryService.GetProducts(c.Request.Context(), inStockOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve products: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// GetProduct handles retrieving a single product by ID
// @Summary      Get product
// @Description  Retrieves a single product by ID
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.inventoryService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct creates a new catalog entry
// @Summary      Create product
// @Description  Creates a new product entry in the asset catalog
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	product, err := h.inventoryService.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}
