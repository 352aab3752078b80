package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/assetdesk/internal/model"
)

func newAssetRouter(computers ComputerServiceInterface, printers PrinterServiceInterface) http.Handler {
	ch := NewComputerHandler(computers)
	ph := NewPrinterHandler(printers)
	r := chi.NewRouter()
	r.Get("/computers", ch.List)
	r.Post("/computers", ch.Create)
	r.Put("/computers", ch.Update)
	r.Delete("/computers/{id_computer}", ch.Delete)
	r.Get("/printers", ph.List)
	r.Post("/printers", ph.Create)
	r.Put("/printers", ph.Update)
	r.Delete("/printers/{id_printer}", ph.Delete)
	return r
}

func strPtr(s string) *string { return &s }

func TestComputerHandler_List_RendersDates(t *testing.T) {
	svc := &mockComputerService{
		listFn: func(context.Context) ([]*model.Computer, error) {
			return []*model.Computer{{
				ID: 1, Name: "PC-01", Type: "Desktop", MAC: "AA:BB", AssetNumber: 1001,
				Status: 1, ExitDate: strPtr("2026-02-01"), Reason: "Manutenção",
			}}, nil
		},
	}

	w := doJSON(newAssetRouter(svc, &mockPrinterService{}), http.MethodGet, "/computers", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Success bool             `json:"success"`
		Data    []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("len(data) = %d", len(body.Data))
	}
	row := body.Data[0]
	if row["exit_date"] != "2026-02-01" {
		t.Errorf("exit_date = %v", row["exit_date"])
	}
	if row["return_date"] != nil {
		t.Errorf("return_date = %v, want null", row["return_date"])
	}
	if row["name_computer"] != "PC-01" || row["id_computer"] != float64(1) {
		t.Errorf("row = %v", row)
	}
}

func TestComputerHandler_Create(t *testing.T) {
	var got *model.Computer
	svc := &mockComputerService{
		createFn: func(_ context.Context, c *model.Computer) (int64, error) {
			got = c
			return 3, nil
		},
	}

	w := doJSON(newAssetRouter(svc, &mockPrinterService{}), http.MethodPost, "/computers",
		`{"name_computer":"PC-02","type_computer":"Notebook","mac_computer":"AA:BB:CC","asset_number":2002,"status_computer":0,"exit_date":"","reason":"Novo"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if got == nil || got.AssetNumber != 2002 || got.Status != 0 {
		t.Fatalf("computer = %+v", got)
	}
	if got.ExitDate != nil {
		t.Errorf("empty exit_date should be stored as NULL, got %q", *got.ExitDate)
	}
}

func TestComputerHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short name", `{"name_computer":"P","type_computer":"Desktop","mac_computer":"AA","asset_number":1,"status_computer":0,"reason":"ok"}`},
		{"non-positive asset", `{"name_computer":"PC","type_computer":"Desktop","mac_computer":"AA","asset_number":0,"status_computer":0,"reason":"ok"}`},
		{"negative status", `{"name_computer":"PC","type_computer":"Desktop","mac_computer":"AA","asset_number":1,"status_computer":-1,"reason":"ok"}`},
		{"missing reason", `{"name_computer":"PC","type_computer":"Desktop","mac_computer":"AA","asset_number":1,"status_computer":0}`},
		{"bad date", `{"name_computer":"PC","type_computer":"Desktop","mac_computer":"AA","asset_number":1,"status_computer":0,"reason":"ok","exit_date":"01/02/2026"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newAssetRouter(&mockComputerService{}, &mockPrinterService{}), http.MethodPost, "/computers", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestComputerHandler_Delete(t *testing.T) {
	var deleted int64
	svc := &mockComputerService{
		deleteFn: func(_ context.Context, id int64) error {
			deleted = id
			if id == 404 {
				return model.NewComputerNotFoundError()
			}
			return nil
		},
	}
	router := newAssetRouter(svc, &mockPrinterService{})

	if w := doJSON(router, http.MethodDelete, "/computers/8", ""); w.Code != http.StatusOK || deleted != 8 {
		t.Errorf("status = %d, deleted = %d", w.Code, deleted)
	}
	if w := doJSON(router, http.MethodDelete, "/computers/404", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", w.Code)
	}
	if w := doJSON(router, http.MethodDelete, "/computers/-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative id: status = %d, want 400", w.Code)
	}
}

func TestPrinterHandler_Create_MACLength(t *testing.T) {
	called := false
	svc := &mockPrinterService{
		createFn: func(context.Context, *model.Printer) (int64, error) {
			called = true
			return 1, nil
		},
	}
	router := newAssetRouter(&mockComputerService{}, svc)

	w := doJSON(router, http.MethodPost, "/printers",
		`{"name_printer":"HP","mac_printer":"AABBCC","asset_number":10,"status_printer":1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short mac: status = %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Message != "O mac da impressora deve ter pelo menos 12 caracteres" {
		t.Errorf("message = %q", body.Message)
	}

	w = doJSON(router, http.MethodPost, "/printers",
		`{"name_printer":"HP","mac_printer":"AA:BB:CC:DD:EE:FF","asset_number":10,"status_printer":1,"reason":null}`)
	if w.Code != http.StatusCreated || !called {
		t.Errorf("valid: status = %d, called = %v", w.Code, called)
	}
}

func TestPrinterHandler_Update_Duplicate(t *testing.T) {
	svc := &mockPrinterService{
		updateFn: func(context.Context, *model.Printer) error { return model.NewDuplicateError("Patrimônio") },
	}

	w := doJSON(newAssetRouter(&mockComputerService{}, svc), http.MethodPut, "/printers",
		`{"id_printer":2,"name_printer":"HP","mac_printer":"AA:BB:CC:DD:EE:FF","asset_number":10,"status_printer":1}`)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(decodeError(t, w).Message, "Patrimônio") {
		t.Error("message should mention the duplicated field")
	}
}
