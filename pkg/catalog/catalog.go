package catalog

import (
	"fmt"
	"strings"
)

// RawRecord is a source-specific record as returned by a collector. Keys and
// value types differ from source to source; only the normalizer reads it.
type RawRecord map[string]any

// Record is the unified schema served by the catalog caches.
type Record struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	LocationDetails string `json:"location_details"`
	Neighborhood    string `json:"neighborhood"`
	DateInfo        string `json:"date_info"`
	TimeInfo        string `json:"time_info"`
	DetailsLink     string `json:"details_link"`
	Source          string `json:"source"`
	Description     string `json:"description,omitempty"`
}

// PrintRecord writes one line per record using the given output flags.
func PrintRecord(r Record, outputFlags string, delimiter string) error {
	line, err := createLine(r, outputFlags, delimiter)
	if err != nil {
		return err
	}
	if len(line) > 0 {
		fmt.Println(line)
	}
	return nil
}

func createLine(r Record, outputFlags, delimiter string) (string, error) {
	var line string
	for _, f := range outputFlags {
		switch f {
		case 'n':
			line += r.Name + delimiter
		case 't':
			line += r.Type + delimiter
		case 'b':
			line += r.Neighborhood + delimiter
		case 'd':
			line += r.DateInfo + delimiter
		case 'l':
			line += r.DetailsLink + delimiter
		case 's':
			line += r.Source + delimiter
		case 'i':
			line += r.ID + delimiter
		default:
			return "", fmt.Errorf("invalid output flag: %q", f)
		}
	}
	return strings.TrimSuffix(line, delimiter), nil
}

// unificationMap is the source of truth for type normalization.
// It groups raw, source-specific category strings under a unified tag.
var unificationMap = map[string][]string{
	"museu":     {"museu", "museum", "museus", "museums", "memorial", "pinacoteca"},
	"exposicao": {"exposicao", "exposicoes", "exposição", "exposições", "mostra", "exhibition", "arte"},
	"oficina":   {"oficina", "oficinas", "workshop", "maker"},
	"curso":     {"curso", "cursos", "course", "formacao", "formação"},
	"palestra":  {"palestra", "palestras", "talk", "debate", "bate-papo"},
	"show":      {"show", "shows", "musica", "música", "concerto", "concert"},
	"teatro":    {"teatro", "teatros", "espetaculo", "espetáculo", "danca", "dança"},
	"festival":  {"festival", "festivais", "festa", "festas"},
	"feira":     {"feira", "feiras", "mercado"},
	"outro":     {"outro", "outros", "other", "n/a"},
}

// typeMap is a reverse map generated from unificationMap for efficient lookups.
var typeMap map[string]string

func init() {
	typeMap = make(map[string]string)
	for unified, raws := range unificationMap {
		for _, raw := range raws {
			typeMap[Fold(raw)] = unified
		}
	}
}

// NormalizeType maps a raw category onto the unified type tags. Multi-valued
// categories ("Oficina, Robótica") are unified by their first known value.
func NormalizeType(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}

	parts := strings.FieldsFunc(category, func(r rune) bool { return r == ',' || r == '/' || r == ';' })
	for _, p := range parts {
		if unified, ok := typeMap[Fold(p)]; ok {
			return unified
		}
	}

	// For anything else, just format it nicely.
	first := category
	if len(parts) > 0 {
		first = parts[0]
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(first)), "_", " ")
}
