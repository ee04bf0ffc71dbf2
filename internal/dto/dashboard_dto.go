package dto

import "github.com/shopspring/decimal"

// MaterialTotal is one entry of compras_por_material.
type MaterialTotal struct {
	Mercaderia string          `json:"mercaderia"`
	TotalKilos decimal.Decimal `json:"total_kilos"`
}

// DashboardData is returned by GET /api/dashboard/data.
type DashboardData struct {
	TotalKilosComprados decimal.Decimal `json:"total_kilos_comprados"`
	TotalKilosVendidos  decimal.Decimal `json:"total_kilos_vendidos"`
	BalanceNeto         decimal.Decimal `json:"balance_neto"`
	ComprasPorMaterial  []MaterialTotal `json:"compras_por_material"`
}

// DailyBalance is one point of GET /api/dashboard/last5days.
type DailyBalance struct {
	Fecha       string          `json:"fecha"` // YYYY-MM-DD
	BalanceNeto decimal.Decimal `json:"balance_neto"`
}

// LastMove is one entry of GET /api/dashboard/last-moves.
type LastMove struct {
	ID         *int            `json:"id"`
	Tipo       string          `json:"tipo"` // compra | venta
	Fecha      string          `json:"fecha"`
	Mercaderia string          `json:"mercaderia"`
	Neto       decimal.Decimal `json:"neto"`
	Tercero    string          `json:"tercero"`
	Proveedor  string          `json:"proveedor,omitempty"`
	Cliente    string          `json:"cliente,omitempty"`
}
