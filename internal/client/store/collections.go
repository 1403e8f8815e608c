package store

// Index is a secondary, derived lookup path over a collection. Index values
// are extracted from the document at write time; the document itself stays
// authoritative.
type Index struct {
	Name   string // column and index name
	Path   string // dotted path into the document
	Unique bool
}

// Collection describes a named, keyed container of records.
type Collection struct {
	Name    string
	KeyPath string // dotted path to the primary key inside the document
	Indexes []Index
}

// Collections is the replica layout. Claims are keyed by their natural
// business number, everything else by surrogate id.
var Collections = []Collection{
	{
		Name:    "claims",
		KeyPath: "claim_number",
		Indexes: []Index{
			{Name: "contract_id", Path: "contract_id"},
			{Name: "status", Path: "status"},
			{Name: "declaration_date", Path: "declaration_date"},
			{Name: "modified", Path: "modified"},
		},
	},
	{
		Name:    "contracts",
		KeyPath: "id",
		Indexes: []Index{
			{Name: "contract_number", Path: "contract_number", Unique: true},
			{Name: "client_id", Path: "client_id"},
			{Name: "modified", Path: "modified"},
		},
	},
	{
		Name:    "clients",
		KeyPath: "id",
		Indexes: []Index{
			{Name: "client_number", Path: "client_number", Unique: true},
			{Name: "modified", Path: "modified"},
		},
	},
	{
		Name:    "sites",
		KeyPath: "id",
		Indexes: []Index{
			{Name: "site_reference", Path: "site_reference"},
			{Name: "modified", Path: "modified"},
		},
	},
}

// LookupCollection returns the layout entry for name.
func LookupCollection(name string) (Collection, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

func (c Collection) index(name string) (Index, bool) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// HasIndex reports whether the collection declares a secondary index with
// the given name.
func (c Collection) HasIndex(name string) bool {
	_, ok := c.index(name)
	return ok
}
