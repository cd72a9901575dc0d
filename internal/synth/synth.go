// Package synth fabricates point-of-sale rows the way the upstream ERP
// would: a few sales per cycle during business hours, plus a once-daily
// batch of competitor prices. All randomness flows through one rand.Rand
// and all timestamps through one clock, both injectable.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Timestamp is the wall-clock layout the feed writes into date columns.
// It carries a time-of-day, which is more than the importer's date parser
// accepts; the importer nulls those cells and reports them, matching how
// the live feed has always behaved.
const Timestamp = "2006-01-02 15:04:05"

const idStamp = "20060102150405"

var channels = []string{"loja_fisica", "ecommerce"}

var competitors = []string{
	"Mercado Livre", "Amazon", "Magalu",
	"Americanas", "Shopee", "AliExpress",
}

// Config tunes the generator. Zero values select the defaults noted on
// each field.
type Config struct {
	// SalesPerCycle is how many sales one Sales call fabricates. Default 3.
	SalesPerCycle int
	// SaleJitter is the unit-price spread around the catalog price,
	// as a fraction. Default 0.05.
	SaleJitter float64
	// CompetitorJitter is the spread for competitor prices. Default 0.18.
	CompetitorJitter float64
	// OpenHour and CloseHour bound the business day; sales are stamped
	// inside [OpenHour, CloseHour). Defaults 8 and 23.
	OpenHour  int
	CloseHour int
}

func (c Config) withDefaults() Config {
	if c.SalesPerCycle == 0 {
		c.SalesPerCycle = 3
	}
	if c.SaleJitter == 0 {
		c.SaleJitter = 0.05
	}
	if c.CompetitorJitter == 0 {
		c.CompetitorJitter = 0.18
	}
	if c.OpenHour == 0 && c.CloseHour == 0 {
		c.OpenHour, c.CloseHour = 8, 23
	}
	return c
}

// Product is one catalog entry the generator prices sales against.
type Product struct {
	ID    string
	Price float64
}

// Sale is one fabricated sale. Row renders it in the vendas worksheet
// column order.
type Sale struct {
	ID        string
	At        time.Time
	ClientID  string
	ProductID string
	Channel   string
	Quantity  int
	UnitPrice float64
}

// Row returns the sale as a worksheet row: id, timestamp, client,
// product, channel, quantity, unit price.
func (s Sale) Row() []any {
	return []any{
		s.ID,
		s.At.Format(Timestamp),
		s.ClientID,
		s.ProductID,
		s.Channel,
		s.Quantity,
		s.UnitPrice,
	}
}

// CompetitorPrice is one observed marketplace price. Row renders it in
// the preco_competidores worksheet column order.
type CompetitorPrice struct {
	ProductID   string
	Competitor  string
	Price       float64
	CollectedAt time.Time
}

// Row returns the observation as a worksheet row: product, competitor,
// price, collection timestamp.
func (p CompetitorPrice) Row() []any {
	return []any{
		p.ProductID,
		p.Competitor,
		p.Price,
		p.CollectedAt.Format(Timestamp),
	}
}

// Generator fabricates sales and competitor prices. Not safe for
// concurrent use; rand.Rand is not either.
type Generator struct {
	cfg Config
	rng *rand.Rand
	now func() time.Time
}

// New returns a Generator. A nil rng gets a time-seeded one and a nil
// now defaults to time.Now; tests pass fixed ones.
func New(cfg Config, rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{cfg: cfg.withDefaults(), rng: rng, now: now}
}

// Sales fabricates one cycle of sales against the given client and
// product pools. Empty pools yield nil.
func (g *Generator) Sales(clients []string, products []Product) []Sale {
	if len(clients) == 0 || len(products) == 0 {
		return nil
	}
	sales := make([]Sale, 0, g.cfg.SalesPerCycle)
	for i := 0; i < g.cfg.SalesPerCycle; i++ {
		p := products[g.rng.Intn(len(products))]
		sales = append(sales, Sale{
			ID:        g.saleID(),
			At:        g.saleTime(),
			ClientID:  clients[g.rng.Intn(len(clients))],
			ProductID: p.ID,
			Channel:   channels[g.rng.Intn(len(channels))],
			Quantity:  1 + g.rng.Intn(5),
			UnitPrice: g.jitter(p.Price, g.cfg.SaleJitter),
		})
	}
	return sales
}

// CompetitorPrices fabricates one day's marketplace observations: a
// single random product priced by every tracked competitor. Empty pools
// yield nil. InCompetitorWindow says whether the daily slot is open;
// callers decide whether to honor it.
func (g *Generator) CompetitorPrices(products []Product) []CompetitorPrice {
	if len(products) == 0 {
		return nil
	}
	p := products[g.rng.Intn(len(products))]
	at := g.now()
	prices := make([]CompetitorPrice, 0, len(competitors))
	for _, c := range competitors {
		prices = append(prices, CompetitorPrice{
			ProductID:   p.ID,
			Competitor:  c,
			Price:       g.jitter(p.Price, g.cfg.CompetitorJitter),
			CollectedAt: at,
		})
	}
	return prices
}

// InCompetitorWindow reports whether the clock is inside the once-daily
// competitor slot, the first hour of the day.
func (g *Generator) InCompetitorWindow() bool {
	return g.now().Hour() == 0
}

// saleID stamps the current wall clock plus a 5-digit discriminator, so
// ids sort roughly by creation time.
func (g *Generator) saleID() string {
	return fmt.Sprintf("sal_%s_%d", g.now().Format(idStamp), 10000+g.rng.Intn(90000))
}

// saleTime picks the moment a sale claims to have happened. Inside
// business hours that is now give or take four minutes; outside, a
// uniform draw over today's business window, so overnight cycles
// backfill the day instead of stamping 03:00 sales.
func (g *Generator) saleTime() time.Time {
	now := g.now()
	if h := now.Hour(); h >= g.cfg.OpenHour && h < g.cfg.CloseHour {
		return now.Add(time.Duration(g.rng.Intn(481)-240) * time.Second)
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), g.cfg.OpenHour, 0, 0, 0, now.Location())
	window := time.Duration(g.cfg.CloseHour-g.cfg.OpenHour) * time.Hour
	return open.Add(time.Duration(g.rng.Float64() * float64(window)))
}

// jitter spreads base by up to ±frac and rounds to centavos.
func (g *Generator) jitter(base, frac float64) float64 {
	v := base + (g.rng.Float64()*2-1)*base*frac
	return math.Round(v*100) / 100
}

// FallbackClients is the client pool used when the workbook has none.
func FallbackClients() []string {
	ids := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		ids = append(ids, fmt.Sprintf("cli_%03d", i))
	}
	return ids
}

// FallbackProducts is the catalog used when the workbook has none.
func FallbackProducts() []Product {
	return []Product{
		{ID: "prd_001", Price: 3499.90},
		{ID: "prd_002", Price: 89.90},
		{ID: "prd_003", Price: 449.00},
		{ID: "prd_004", Price: 1299.00},
	}
}
