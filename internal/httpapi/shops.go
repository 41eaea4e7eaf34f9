package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profile, err := a.service.GetMyProfile(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPatch:
		var req domain.ProfileUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		profile, err := a.service.UpdateMyProfile(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleShops(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shops, err := a.service.ListShops(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shops": shops})
	case http.MethodPost:
		var req domain.ShopCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		shop, err := a.service.CreateShop(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, shop)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleShopRoutes dispatches everything under /api/v1/shops/{shopID}/.
func (a *API) handleShopRoutes(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/shops/"), "/")
	parts := strings.Split(tail, "/")
	if tail == "" || parts[0] == "" {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
		return
	}
	shopID := parts[0]

	switch {
	case len(parts) == 1:
		a.handleShop(w, r, shopID)
	case len(parts) == 2 && parts[1] == "logo":
		a.handleShopLogo(w, r, shopID)
	case len(parts) == 2 && parts[1] == "products":
		a.handleProducts(w, r, shopID)
	case len(parts) == 3 && parts[1] == "products":
		a.handleProduct(w, r, shopID, parts[2])
	case len(parts) == 4 && parts[1] == "products" && parts[3] == "quantity":
		a.handleProductQuantity(w, r, shopID, parts[2])
	case len(parts) == 2 && parts[1] == "sales":
		a.handleSales(w, r, shopID)
	case len(parts) == 3 && parts[1] == "sales":
		a.handleSale(w, r, shopID, parts[2])
	case len(parts) == 2 && parts[1] == "expenses":
		a.handleExpenses(w, r, shopID)
	case len(parts) == 3 && parts[1] == "expenses":
		a.handleExpense(w, r, shopID, parts[2])
	case len(parts) == 2 && parts[1] == "dashboard":
		a.handleDashboard(w, r, shopID)
	case len(parts) == 2 && parts[1] == "members":
		a.handleMembers(w, r, shopID)
	case len(parts) == 3 && parts[1] == "members":
		a.handleMember(w, r, shopID, parts[2])
	default:
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	}
}

func (a *API) handleShop(w http.ResponseWriter, r *http.Request, shopID string) {
	switch r.Method {
	case http.MethodGet:
		shop, err := a.service.GetShop(r.Context(), shopID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, shop)
	case http.MethodPatch:
		var req domain.ShopUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		shop, err := a.service.UpdateShop(r.Context(), shopID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, shop)
	case http.MethodDelete:
		if err := a.service.DeleteShop(r.Context(), shopID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleShopLogo accepts a multipart upload in the "logo" field.
func (a *API) handleShopLogo(w http.ResponseWriter, r *http.Request, shopID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	// Multipart framing adds overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, a.maxLogoBytes+64<<10)
	if err := r.ParseMultipartForm(a.maxLogoBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid logo upload: %w", err))
		return
	}
	file, _, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, a.maxLogoBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if int64(len(data)) > a.maxLogoBytes {
		writeServiceError(w, fmt.Errorf("%w: logo exceeds %d bytes", store.ErrInvalidInput, a.maxLogoBytes))
		return
	}

	shop, err := a.service.UploadLogo(r.Context(), shopID, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request, shopID string) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		page, err := a.service.ListProducts(r.Context(), shopID, domain.ProductQuery{
			Search: strings.TrimSpace(query.Get("search")),
			Page:   parsePositiveInt(query.Get("page"), 1, 0),
			Limit:  parsePositiveInt(query.Get("limit"), 10, 100),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), shopID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProduct(w http.ResponseWriter, r *http.Request, shopID string, productID string) {
	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), shopID, productID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), shopID, productID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), shopID, productID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductQuantity(w http.ResponseWriter, r *http.Request, shopID string, productID string) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.ProductQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProductQuantity(r.Context(), shopID, productID, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleSales serves today's ledger unless both from and to are given.
func (a *API) handleSales(w http.ResponseWriter, r *http.Request, shopID string) {
	switch r.Method {
	case http.MethodGet:
		from, to := rangeParams(r)
		var (
			ledger domain.SalesLedger
			err    error
		)
		if from == "" && to == "" {
			ledger, err = a.service.TodaySales(r.Context(), shopID)
		} else {
			ledger, err = a.service.SalesInRange(r.Context(), shopID, from, to)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.RecordSale(r.Context(), shopID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request, shopID string, saleID string) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.DeleteSale(r.Context(), shopID, saleID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request, shopID string) {
	switch r.Method {
	case http.MethodGet:
		from, to := rangeParams(r)
		var (
			ledger domain.ExpenseLedger
			err    error
		)
		if from == "" && to == "" {
			ledger, err = a.service.TodayExpenses(r.Context(), shopID)
		} else {
			ledger, err = a.service.ExpensesInRange(r.Context(), shopID, from, to)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	case http.MethodPost:
		var req domain.ExpenseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.RecordExpense(r.Context(), shopID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, expense)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpense(w http.ResponseWriter, r *http.Request, shopID string, expenseID string) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.DeleteExpense(r.Context(), shopID, expenseID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request, shopID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	resp, err := a.service.Dashboard(r.Context(), shopID, r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMembers(w http.ResponseWriter, r *http.Request, shopID string) {
	switch r.Method {
	case http.MethodGet:
		members, err := a.service.ListMembers(r.Context(), shopID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": members})
	case http.MethodPost:
		var req domain.MemberAddRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		profile, err := a.service.AddMember(r.Context(), shopID, req.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, profile)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleMember(w http.ResponseWriter, r *http.Request, shopID string, userID string) {
	switch r.Method {
	case http.MethodPatch:
		var req domain.MemberUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		profile, err := a.service.SetAdmin(r.Context(), shopID, userID, req.IsAdmin)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodDelete:
		if err := a.service.RemoveMember(r.Context(), shopID, userID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func rangeParams(r *http.Request) (string, string) {
	query := r.URL.Query()
	return strings.TrimSpace(query.Get("from")), strings.TrimSpace(query.Get("to"))
}
