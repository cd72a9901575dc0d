package schema

// defaultRegistry declares the e-commerce workbook: two master tables
// followed by the two tables referencing them. Column names match the
// normalized worksheet headers.
var defaultRegistry = MustNew(
	&Table{
		Name:       "clientes",
		Columns:    []string{"id_cliente", "nome_cliente", "estado", "pais", "data_cadastro"},
		Required:   []string{"id_cliente"},
		PrimaryKey: "id_cliente",
		Types: map[string]FieldType{
			"id_cliente":    TypeText,
			"nome_cliente":  TypeText,
			"estado":        TypeText,
			"pais":          TypeText,
			"data_cadastro": TypeDate,
		},
	},
	&Table{
		Name:       "produtos",
		Columns:    []string{"id_produto", "nome_produto", "categoria", "marca", "preco_atual", "data_criacao"},
		Required:   []string{"id_produto"},
		PrimaryKey: "id_produto",
		Types: map[string]FieldType{
			"id_produto":   TypeText,
			"nome_produto": TypeText,
			"categoria":    TypeText,
			"marca":        TypeText,
			"preco_atual":  TypeDecimal,
			"data_criacao": TypeDate,
		},
		NonNegative:  []string{"preco_atual"},
		ExtraIndexes: []string{"categoria"},
	},
	&Table{
		Name:     "preco_competidores",
		Columns:  []string{"id_produto", "nome_concorrente", "preco_concorrente", "data_coleta"},
		Required: []string{"id_produto"},
		Types: map[string]FieldType{
			"id_produto":        TypeText,
			"nome_concorrente":  TypeText,
			"preco_concorrente": TypeDecimal,
			"data_coleta":       TypeDate,
		},
		ForeignKeys:  map[string]string{"id_produto": "produtos"},
		NonNegative:  []string{"preco_concorrente"},
		ExtraIndexes: []string{"data_coleta"},
	},
	&Table{
		Name:       "vendas",
		Columns:    []string{"id_venda", "data_venda", "id_cliente", "id_produto", "canal_venda", "quantidade", "preco_unitario"},
		Required:   []string{"id_venda"},
		PrimaryKey: "id_venda",
		Types: map[string]FieldType{
			"id_venda":       TypeText,
			"data_venda":     TypeDate,
			"id_cliente":     TypeText,
			"id_produto":     TypeText,
			"canal_venda":    TypeText,
			"quantidade":     TypeInteger,
			"preco_unitario": TypeDecimal,
		},
		ForeignKeys: map[string]string{
			"id_cliente": "clientes",
			"id_produto": "produtos",
		},
		NonNegative:  []string{"preco_unitario"},
		ExtraIndexes: []string{"data_venda"},
	},
)

// Default returns the built-in registry.
func Default() *Registry { return defaultRegistry }
