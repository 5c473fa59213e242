package ftm

import "slices"

// Type describes an FtM property type. The group is the name of the
// unified index field collecting values of this type across properties
// ("countries", "emails", ...); types without a group leave it empty.
// Specificity orders matching clauses: higher values identify an entity
// more precisely than lower ones.
type Type struct {
	Name        string
	Group       string
	Matchable   bool
	Numeric     bool
	Text        bool
	Specificity float64
}

// The FtM type registry. The type system is consumed as-is and is not
// extensible at runtime; only the schema catalog is.
var (
	TypeName       = Type{Name: "name", Group: "names", Matchable: true, Specificity: 0.5}
	TypeCountry    = Type{Name: "country", Group: "countries", Matchable: true, Specificity: 0.2}
	TypeLanguage   = Type{Name: "language", Group: "languages", Specificity: 0.1}
	TypeEmail      = Type{Name: "email", Group: "emails", Matchable: true, Specificity: 0.9}
	TypePhone      = Type{Name: "phone", Group: "phones", Matchable: true, Specificity: 0.9}
	TypeDate       = Type{Name: "date", Group: "dates", Matchable: true, Numeric: true, Specificity: 0.3}
	TypeAddress    = Type{Name: "address", Group: "addresses", Matchable: true, Specificity: 0.7}
	TypeIdentifier = Type{Name: "identifier", Group: "identifiers", Matchable: true, Specificity: 0.95}
	TypeIP         = Type{Name: "ip", Group: "ips", Matchable: true, Specificity: 0.95}
	TypeURL        = Type{Name: "url", Group: "urls", Matchable: true, Specificity: 0.8}
	TypeChecksum   = Type{Name: "checksum", Group: "checksums", Matchable: true, Specificity: 1.0}
	TypeEntity     = Type{Name: "entity", Group: "entities", Matchable: true, Specificity: 0.8}
	TypeMimetype   = Type{Name: "mimetype", Group: "mimetypes", Specificity: 0.1}
	TypeGender     = Type{Name: "gender", Group: "genders", Specificity: 0.1}
	TypeTopic      = Type{Name: "topic", Group: "topics", Specificity: 0.1}
	TypeString     = Type{Name: "string", Specificity: 0.1}
	TypeNumber     = Type{Name: "number", Numeric: true, Specificity: 0.1}
	TypeText       = Type{Name: "text", Text: true, Specificity: 0.1}
	TypeHTML       = Type{Name: "html", Text: true, Specificity: 0.1}
	TypeJSON       = Type{Name: "json", Text: true, Specificity: 0.1}
)

var typeRegistry = map[string]Type{
	TypeName.Name:       TypeName,
	TypeCountry.Name:    TypeCountry,
	TypeLanguage.Name:   TypeLanguage,
	TypeEmail.Name:      TypeEmail,
	TypePhone.Name:      TypePhone,
	TypeDate.Name:       TypeDate,
	TypeAddress.Name:    TypeAddress,
	TypeIdentifier.Name: TypeIdentifier,
	TypeIP.Name:         TypeIP,
	TypeURL.Name:        TypeURL,
	TypeChecksum.Name:   TypeChecksum,
	TypeEntity.Name:     TypeEntity,
	TypeMimetype.Name:   TypeMimetype,
	TypeGender.Name:     TypeGender,
	TypeTopic.Name:      TypeTopic,
	TypeString.Name:     TypeString,
	TypeNumber.Name:     TypeNumber,
	TypeText.Name:       TypeText,
	TypeHTML.Name:       TypeHTML,
	TypeJSON.Name:       TypeJSON,
}

// TypeByName looks up a type by its registry name.
func TypeByName(name string) (Type, bool) {
	t, ok := typeRegistry[name]
	return t, ok
}

// Groups maps group field names to the type whose values they collect.
func Groups() map[string]Type {
	groups := make(map[string]Type)
	for _, t := range typeRegistry {
		if t.Group != "" {
			groups[t.Group] = t
		}
	}

	return groups
}

// GroupNames returns all group field names in sorted order.
func GroupNames() []string {
	names := make([]string, 0, len(typeRegistry))
	for _, t := range typeRegistry {
		if t.Group != "" {
			names = append(names, t.Group)
		}
	}

	slices.Sort(names)

	return names
}
