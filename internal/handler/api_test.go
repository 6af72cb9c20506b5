package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"assetdesk/internal/database"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"
	"assetdesk/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type apiEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.NewTestDB(t)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	userService := service.NewUserService(userRepo, auditRepo)
	inventoryService := service.NewInventoryService(productRepo, auditRepo, txManager)
	requestService := service.NewRequestService(requestRepo, productRepo, userRepo, auditRepo, txManager, nil)
	auditService := service.NewAuditService(auditRepo)

	router := gin.New()
	group := router.Group("")
	NewUserHandler(userService).RegisterRoutes(group)
	NewProductHandler(inventoryService).RegisterRoutes(group)
	NewRequestHandler(requestService).RegisterRoutes(group)
	NewAuditHandler(auditService).RegisterRoutes(group)

	return &apiEnv{db: db, router: router}
}

func (e *apiEnv) seedUser(t *testing.T, username, password, role string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{Username: username, Password: string(hash), Name: username, Role: role}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func (e *apiEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, w.Code, w.Body.String())
	}

	var data struct {
		Token string `json:"token"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("expected a token in the login response")
	}
	return data.Token
}

func TestLoginBadCredentials(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "employee1", "employee123", model.RoleEmployee)

	w := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "employee1",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestWorkflowOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "admin", "admin123", model.RoleAdmin)
	env.seedUser(t, "manager1", "manager123", model.RoleManager)
	env.seedUser(t, "employee1", "employee123", model.RoleEmployee)

	adminToken := env.login(t, "admin", "admin123")
	managerToken := env.login(t, "manager1", "manager123")
	employeeToken := env.login(t, "employee1", "employee123")

	// Admin creates a product
	w := env.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
		"name":     "Laptop",
		"quantity": 5,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: status %d: %s", w.Code, w.Body.String())
	}
	var product struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &product); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	// Employee cannot create products
	w = env.do(t, http.MethodPost, "/api/products", employeeToken, map[string]interface{}{
		"name":     "Rogue",
		"quantity": 1,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for employee product creation, got %d", w.Code)
	}

	// Employee files a request
	w = env.do(t, http.MethodPost, "/api/requests", employeeToken, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
		"reason":     "new hire setup",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create request: status %d: %s", w.Code, w.Body.String())
	}
	var request struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &request); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if request.Status != model.RequestPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}

	// Manager sees it in the worklist
	w = env.do(t, http.MethodGet, "/api/approvals", managerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list approvals: status %d: %s", w.Code, w.Body.String())
	}
	var pending []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &pending); err != nil {
		t.Fatalf("decode approvals: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != request.ID {
		t.Fatalf("expected the request in the worklist, got %+v", pending)
	}

	// Employee cannot approve
	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/approvals/%s/approve", request.ID), employeeToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for employee approval, got %d", w.Code)
	}

	// Manager approves
	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/approvals/%s/approve", request.ID), managerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: status %d: %s", w.Code, w.Body.String())
	}

	// Stock went 5 -> 3
	var stored model.Product
	if err := env.db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Quantity != 3 {
		t.Errorf("expected quantity 3 after approval, got %d", stored.Quantity)
	}

	// Admin processes the return
	w = env.do(t, http.MethodPut, "/api/returns/"+request.ID, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("return: status %d: %s", w.Code, w.Body.String())
	}
	if err := env.db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.Quantity != 5 {
		t.Errorf("expected quantity restored to 5, got %d", stored.Quantity)
	}

	// Audit trail recorded the workflow and is admin-only
	w = env.do(t, http.MethodGet, "/api/audit-logs", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit logs: status %d: %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/audit-logs", managerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for manager audit access, got %d", w.Code)
	}
}

func TestCreateProductWithZeroQuantity(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "admin", "admin123", model.RoleAdmin)
	adminToken := env.login(t, "admin", "admin123")

	// Out-of-stock items are legal catalog entries; the in-stock filter is
	// what hides them from employees.
	w := env.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
		"name":     "Backorder Item",
		"quantity": 0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create zero-quantity product: status %d: %s", w.Code, w.Body.String())
	}
	var product struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if product.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", product.Quantity)
	}

	// Negative quantities are still rejected
	w = env.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
		"name":     "Bad",
		"quantity": -1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", w.Code)
	}
}

func TestProductListingRolesAndFilter(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "employee1", "employee123", model.RoleEmployee)
	employeeToken := env.login(t, "employee1", "employee123")

	if err := env.db.Create(&model.Product{Name: "Laptop", Quantity: 5}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := env.db.Create(&model.Product{Name: "Dock", Quantity: 0}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/products", employeeToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list products: status %d: %s", w.Code, w.Body.String())
	}
	var all []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &all); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}

	w = env.do(t, http.MethodGet, "/api/products?in_stock=true", employeeToken, nil)
	var inStock []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &inStock); err != nil {
		t.Fatalf("decode in-stock products: %v", err)
	}
	if len(inStock) != 1 || inStock[0].Name != "Laptop" {
		t.Errorf("expected only Laptop in stock, got %+v", inStock)
	}

	// No token at all
	w = env.do(t, http.MethodGet, "/api/products", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "admin", "admin123", model.RoleAdmin)
	env.seedUser(t, "manager1", "manager123", model.RoleManager)
	env.seedUser(t, "employee1", "employee123", model.RoleEmployee)
	adminToken := env.login(t, "admin", "admin123")
	managerToken := env.login(t, "manager1", "manager123")

	w := env.do(t, http.MethodGet, "/api/users", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list users: status %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		Users []struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"users"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if data.Total != 3 || len(data.Users) != 3 {
		t.Errorf("expected 3 users, got total=%d len=%d", data.Total, len(data.Users))
	}

	w = env.do(t, http.MethodGet, "/api/users", managerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for manager, got %d", w.Code)
	}
}

func TestDirectAssignmentOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "admin", "admin123", model.RoleAdmin)
	employee := env.seedUser(t, "employee1", "employee123", model.RoleEmployee)
	adminToken := env.login(t, "admin", "admin123")

	product := &model.Product{Name: "Phone", Quantity: 3}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	// Admin sees the employee pick-list
	w := env.do(t, http.MethodGet, "/api/assignments/employees", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list employees: status %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/assignments", adminToken, map[string]interface{}{
		"employee_id": employee.ID.String(),
		"product_id":  product.ID.String(),
		"quantity":    2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("assign: status %d: %s", w.Code, w.Body.String())
	}
	var assigned struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &assigned); err != nil {
		t.Fatalf("decode assignment: %v", err)
	}
	if assigned.Status != model.RequestApproved {
		t.Errorf("expected approved, got %s", assigned.Status)
	}
	if assigned.Reason != model.ReasonDirectAssignment {
		t.Errorf("expected sentinel reason, got %q", assigned.Reason)
	}

	var stored model.Product
	if err := env.db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Quantity != 1 {
		t.Errorf("expected quantity 1 after assignment, got %d", stored.Quantity)
	}
}
