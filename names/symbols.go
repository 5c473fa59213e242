package names

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"

	"openaleph.org/search/ftm"
)

//go:embed symbols.yaml
var symbolsData []byte

type symbolSpec struct {
	ID     int      `yaml:"id"`
	Tokens []string `yaml:"tokens"`
}

type symbolsSpec struct {
	Person []symbolSpec `yaml:"person"`
	Org    []symbolSpec `yaml:"org"`
}

type symbolTable struct {
	person map[string][]int
	org    map[string][]int
}

var (
	symbolsOnce sync.Once
	symbols     *symbolTable
)

func loadSymbols() *symbolTable {
	symbolsOnce.Do(func() {
		var spec symbolsSpec
		if err := yaml.Unmarshal(symbolsData, &spec); err != nil {
			panic(fmt.Sprintf("names: broken embedded symbol table: %v", err))
		}

		symbols = &symbolTable{
			person: indexSymbols(spec.Person),
			org:    indexSymbols(spec.Org),
		}
	})

	return symbols
}

func indexSymbols(specs []symbolSpec) map[string][]int {
	index := make(map[string][]int)
	for _, spec := range specs {
		for _, token := range spec.Tokens {
			index[token] = append(index[token], spec.ID)
		}
	}

	return index
}

// Symbols tags known name fragments with stable identifiers of the shape
// [NAME:<id>], collapsing cross-alphabet synonyms onto the same id.
// People match against the given-name table, organizations against the
// org-type table; other schemata carry no symbols.
func Symbols(schema *ftm.Schema, names []string) []string {
	if schema == nil {
		return nil
	}

	var table map[string][]int

	switch {
	case schema.IsA("Person"):
		table = loadSymbols().person
	case schema.IsA("Organization"):
		table = loadSymbols().org
	default:
		return nil
	}

	tags := make(map[string]bool)

	for _, name := range names {
		for _, token := range Tokenize(schema, name) {
			ids, ok := table[token]
			if !ok {
				ids, ok = table[Fold(token)]
			}

			if !ok {
				continue
			}

			for _, id := range ids {
				tags[fmt.Sprintf("[NAME:%d]", id)] = true
			}
		}
	}

	return sortedSet(tags)
}
