package settings

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/pflag"
)

// Schema describes the configuration as a JSON Schema document with one
// property per key, carrying its type, default, and description. Property
// names use the flag spelling; the environment spelling follows by
// uppercasing and replacing dashes.
func Schema() *jsonschema.Schema {
	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	(&Config{}).RegisterFlags(fs)

	schema := &jsonschema.Schema{
		Type:        "object",
		Description: "Search layer configuration, environment prefix " + EnvPrefix + "_",
		Properties:  make(map[string]*jsonschema.Schema),
	}

	var order []string

	fs.VisitAll(func(f *pflag.Flag) {
		schema.Properties[f.Name] = &jsonschema.Schema{
			Type:        schemaType(f.Value.Type()),
			Description: f.Usage,
			Default:     defaultJSON(f),
		}

		order = append(order, f.Name)
	})

	schema.PropertyOrder = order

	return schema
}

func schemaType(flagType string) string {
	switch flagType {
	case "bool":
		return "boolean"
	case "int", "int64":
		return "integer"
	case "float64":
		return "number"
	case "stringSlice":
		return "array"
	default:
		return "string"
	}
}

func defaultJSON(f *pflag.Flag) json.RawMessage {
	switch f.Value.Type() {
	case "bool", "int", "int64", "float64":
		// Already valid JSON literals.
		return json.RawMessage(f.DefValue)
	case "stringSlice":
		inner := strings.Trim(f.DefValue, "[]")

		var items []string
		if inner != "" {
			items = strings.Split(inner, ",")
		}

		out, err := json.Marshal(items)
		if err != nil {
			return nil
		}

		return out
	default:
		out, err := json.Marshal(f.DefValue)
		if err != nil {
			return nil
		}

		return out
	}
}
