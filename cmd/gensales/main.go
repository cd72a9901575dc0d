// Command gensales fabricates ERP activity in an XLSX workbook: a few
// sales per cycle plus, in the first hour of the day, one batch of
// competitor prices. Point the importer at the same workbook to close
// the loop.
//
// Example:
//
//	gensales -xlsx=dados_ecommerce.xlsx -init
//	gensales -xlsx=dados_ecommerce.xlsx
//	gensales -xlsx=dados_ecommerce.xlsx -cycles=12 -interval=5m
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"sheetsync/internal/schema"
	"sheetsync/internal/synth"
)

func main() {
	var (
		flagXLSX = flag.String(
			"xlsx",
			"",
			"path of the workbook to append to",
		)
		flagInit = flag.Bool(
			"init",
			false,
			"create the workbook with headers and seed pools, then exit",
		)
		flagSales = flag.Int(
			"sales",
			3,
			"sales fabricated per cycle",
		)
		flagCycles = flag.Int(
			"cycles",
			1,
			"cycles to run before exiting",
		)
		flagInterval = flag.Duration(
			"interval",
			5*time.Minute,
			"pause between cycles",
		)
		flagCompetitors = flag.Bool(
			"competitors",
			false,
			"fabricate competitor prices every cycle instead of once a day",
		)
		flagSeed = flag.Int64(
			"seed",
			0,
			"random seed; 0 seeds from the clock",
		)
	)
	flag.Parse()

	if *flagXLSX == "" {
		fmt.Fprintln(os.Stderr, "gensales: -xlsx is required")
		flag.Usage()
		os.Exit(2)
	}

	if *flagInit {
		if err := initWorkbook(*flagXLSX); err != nil {
			log.Fatalf("gensales: %v", err)
		}
		log.Printf("created %s with seed pools", *flagXLSX)
		return
	}

	var rng *rand.Rand
	if *flagSeed != 0 {
		rng = rand.New(rand.NewSource(*flagSeed))
	}
	gen := synth.New(synth.Config{SalesPerCycle: *flagSales}, rng, nil)

	book, err := synth.OpenBook(*flagXLSX)
	if err != nil {
		log.Fatalf("gensales: %v", err)
	}
	defer book.Close()

	for cycle := 1; cycle <= *flagCycles; cycle++ {
		if err := runCycle(book, gen, *flagCompetitors); err != nil {
			log.Fatalf("gensales: cycle %d: %v", cycle, err)
		}
		if cycle < *flagCycles {
			time.Sleep(*flagInterval)
		}
	}
}

func runCycle(book *synth.Book, gen *synth.Generator, forceCompetitors bool) error {
	clients, products := pools(book)

	sales := gen.Sales(clients, products)
	rows := make([][]any, len(sales))
	for i, s := range sales {
		rows[i] = s.Row()
	}
	if err := book.Append("vendas", rows); err != nil {
		return err
	}
	log.Printf("appended %d sales", len(sales))

	if forceCompetitors || gen.InCompetitorWindow() {
		prices := gen.CompetitorPrices(products)
		rows := make([][]any, len(prices))
		for i, p := range prices {
			rows[i] = p.Row()
		}
		if err := book.Append("preco_competidores", rows); err != nil {
			return err
		}
		if len(prices) > 0 {
			log.Printf("appended %d competitor prices for %s", len(prices), prices[0].ProductID)
		}
	}

	return book.Save()
}

// pools reads the generation pools from the workbook, falling back to
// the built-in ones when a worksheet is unreadable or empty.
func pools(book *synth.Book) ([]string, []synth.Product) {
	clients, err := book.Clients()
	if err != nil {
		log.Printf("read clientes: %v; using fallback pool", err)
	}
	if len(clients) == 0 {
		clients = synth.FallbackClients()
	}
	products, err := book.Products()
	if err != nil {
		log.Printf("read produtos: %v; using fallback catalog", err)
	}
	if len(products) == 0 {
		products = synth.FallbackProducts()
	}
	return clients, products
}

func initWorkbook(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	book, err := synth.CreateBook(path, schema.Default())
	if err != nil {
		return err
	}
	defer book.Close()

	var clients [][]any
	for _, id := range synth.FallbackClients() {
		clients = append(clients, []any{id})
	}
	if err := book.Append("clientes", clients); err != nil {
		return err
	}

	// preco_atual is the fifth produtos column.
	var products [][]any
	for _, p := range synth.FallbackProducts() {
		products = append(products, []any{p.ID, nil, nil, nil, p.Price})
	}
	if err := book.Append("produtos", products); err != nil {
		return err
	}

	return book.Save()
}
