// Command seed loads demo users, clients, equipment and documents through the
// service layer so numbering, totals and audit entries match real traffic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ecoserv/ecoserv/internal/app"
	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/platform/db"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/shared"
	"github.com/ecoserv/ecoserv/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping seed")
		return
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// No Redis: the dashboard cache is rebuilt on first read.
	svc := app.NewServices(cfg, pool, nil, logger)
	if err := seed(ctx, svc, logger); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.Time("at", time.Now()))
}

func seed(ctx context.Context, svc *app.Services, logger *slog.Logger) error {
	_, total, err := svc.Clients.List(ctx, clients.ListFilter{Page: shared.PageRequest{Page: 1, PerPage: 1}})
	if err != nil {
		return err
	}
	if total > 0 {
		logger.Info("clients already present, skipping seed", slog.Int("clients", total))
		return nil
	}

	// ==========================================================================
	// STAFF
	// ==========================================================================
	var gestorID int64
	for _, req := range []users.CreateRequest{
		{Name: "Carla Mendoza", Email: "carla.mendoza@ecoserv.pe", Role: "gestor", Department: "Operaciones"},
		{Name: "Jorge Quispe", Email: "jorge.quispe@ecoserv.pe", Role: "tecnico", Department: "Laboratorio"},
		{Name: "Admin", Email: "admin@ecoserv.pe", Role: "admin"},
	} {
		u, err := svc.Users.CreateUser(ctx, req)
		if err != nil {
			return fmt.Errorf("user %s: %w", req.Email, err)
		}
		if gestorID == 0 {
			gestorID = u.ID
		}
	}

	// ==========================================================================
	// CLIENTS
	// ==========================================================================
	mining, err := svc.Clients.Create(ctx, clients.CreateRequest{
		Name: "Minera Andina S.A.", TaxID: "20512345678", Address: "Av. Javier Prado 1234, San Isidro",
		Email: "compras@mineraandina.pe", ContactName: "Rosa Huaman", CreditDays: 30, PaymentMethod: "Transferencia",
	})
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if _, err := svc.Clients.Create(ctx, clients.CreateRequest{
		Name: "Agroexportadora del Sur S.A.C.", TaxID: "20698765432", Address: "Km 12 Panamericana Sur, Ica",
		CreditDays: 15,
	}); err != nil {
		return fmt.Errorf("client: %w", err)
	}

	// ==========================================================================
	// EQUIPMENT
	// ==========================================================================
	calibrated := time.Now().AddDate(0, -3, 0)
	sampler, err := svc.Equipment.Create(ctx, equipment.CreateRequest{
		Code: "HV-001", Name: "Muestreador de alto volumen PM10", Brand: "Tisch", Model: "TE-6070",
		Status: equipment.StatusGood, IsCalibrated: true, CalibrationDate: &calibrated, DailyRate: 180,
		Components: map[string]string{"motor": "ok", "controlador": "ok"},
	})
	if err != nil {
		return fmt.Errorf("equipment: %w", err)
	}
	sonometer, err := svc.Equipment.Create(ctx, equipment.CreateRequest{
		Code: "SN-004", Name: "Sonometro clase 1", Brand: "Larson Davis", Model: "LxT",
		Status: equipment.StatusFair, DailyRate: 95,
	})
	if err != nil {
		return fmt.Errorf("equipment: %w", err)
	}

	// ==========================================================================
	// DOCUMENTS
	// ==========================================================================
	days := 5
	items := []lineitems.Input{
		{EquipmentID: &sampler.ID, Description: "Monitoreo de calidad de aire PM10", Unit: "und", Quantity: 2, Days: &days, UnitPrice: 180},
		{EquipmentID: &sonometer.ID, Description: "Monitoreo de ruido ambiental", Unit: "und", Quantity: 1, Days: &days, UnitPrice: 95},
		{Description: "Informe tecnico", Unit: "glb", Quantity: 1, UnitPrice: 600},
	}
	q, err := svc.Quotations.Create(ctx, quotations.CreateRequest{
		ClientID: mining.ID, Status: quotations.StatusSent, Currency: billing.CurrencyPEN,
		ValidityDays: 15, Description: "Monitoreo ambiental trimestral", Items: items,
	})
	if err != nil {
		return fmt.Errorf("quotation: %w", err)
	}
	if _, err := svc.Quotations.Respond(ctx, q.ID, quotations.StatusAccepted); err != nil {
		return fmt.Errorf("accept quotation: %w", err)
	}

	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, days)
	so, err := svc.ServiceOrders.Create(ctx, serviceorders.CreateRequest{
		ClientID: mining.ID, GestorID: &gestorID, QuotationID: &q.ID,
		StartDate: &start, EndDate: &end, Location: "Unidad minera Cerro Verde, Arequipa",
	})
	if err != nil {
		return fmt.Errorf("service order: %w", err)
	}

	po, err := svc.PurchaseOrders.Create(ctx, purchaseorders.CreateRequest{
		ClientID: mining.ID, GestorID: &gestorID, Currency: billing.CurrencyUSD,
		PaymentTerms: "30 dias", Items: []lineitems.Input{
			{Description: "Filtros de cuarzo 8x10", Unit: "caja", Quantity: 3, UnitPrice: 120},
		},
	})
	if err != nil {
		return fmt.Errorf("purchase order: %w", err)
	}

	logger.Info("seeded documents",
		slog.String("quotation", q.Number),
		slog.String("service_order", so.Number),
		slog.String("purchase_order", po.Number),
	)
	return nil
}
