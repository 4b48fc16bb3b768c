package web

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
)

// requestTypes lists the request bodies published under /api/schemas/{name}.
var requestTypes = map[string]any{
	"boutique":     app.BoutiqueRequest{},
	"user":         app.UserRequest{},
	"category":     app.CategoryRequest{},
	"product":      app.ProductRequest{},
	"partner":      app.PartnerRequest{},
	"stock-adjust": app.AdjustStockRequest{},
	"sale":         app.CreateSaleRequest{},
	"sale-update":  app.UpdateSaleRequest{},
	"payment":      app.PaymentRequest{},
	"order":        app.CreateOrderRequest{},
	"reception":    app.ReceiveOrderRequest{},
	"order-pay":    app.PayOrderRequest{},
	"transaction":  app.TransactionRequest{},
}

func generateSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// schema handles GET /api/schemas/{name}.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "name"))
	v, ok := requestTypes[name]
	if !ok {
		names := make([]string, 0, len(requestTypes))
		for n := range requestTypes {
			names = append(names, n)
		}
		sort.Strings(names)
		writeErrorDetails(w, r, "schéma inconnu : "+name, "NOT_FOUND", http.StatusNotFound, names)
		return
	}
	writeJSON(w, generateSchema(v))
}
