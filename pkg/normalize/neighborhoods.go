package normalize

import (
	"sort"
	"strings"
	"unicode"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// DefaultNeighborhoods lists São Paulo districts and well known bairros.
// "Centro" is left out on purpose: it matches "Centro Cultural ..." venue names.
var DefaultNeighborhoods = []string{
	"Aclimação", "Alto de Pinheiros", "Anhanguera", "Aricanduva", "Artur Alvim",
	"Barra Funda", "Bela Vista", "Belém", "Bom Retiro", "Brás", "Brasilândia",
	"Brooklin", "Butantã", "Cachoeirinha", "Cambuci", "Campo Belo", "Campo Grande",
	"Campo Limpo", "Cangaíba", "Capão Redondo", "Carrão", "Casa Verde",
	"Cerqueira César", "Cidade Ademar", "Cidade Dutra", "Cidade Líder",
	"Cidade Tiradentes", "Consolação", "Cursino", "Ermelino Matarazzo",
	"Freguesia do Ó", "Grajaú", "Guaianases", "Higienópolis", "Ibirapuera",
	"Iguatemi", "Ipiranga", "Itaim Bibi", "Itaim Paulista", "Itaquera",
	"Jabaquara", "Jaçanã", "Jaguara", "Jaguaré", "Jaraguá", "Jardim Ângela",
	"Jardim Europa", "Jardim Helena", "Jardim Paulista", "Jardim São Luís",
	"Jardins", "José Bonifácio", "Lajeado", "Lapa", "Liberdade", "Limão", "Luz",
	"Mandaqui", "Marsilac", "Moema", "Mooca", "Morumbi", "Paraisópolis",
	"Parelheiros", "Pari", "Parque do Carmo", "Pedreira", "Penha", "Perdizes",
	"Perus", "Pinheiros", "Pirituba", "Pompeia", "Ponte Rasa", "Raposo Tavares",
	"República", "Rio Pequeno", "Sacomã", "Santa Cecília", "Santana", "Santo Amaro",
	"São Domingos", "São Lucas", "São Mateus", "São Miguel", "São Rafael",
	"Sapopemba", "Saúde", "Sé", "Socorro", "Tatuapé", "Tremembé", "Tucuruvi",
	"Vila Andrade", "Vila Curuçá", "Vila Formosa", "Vila Guilherme",
	"Vila Jacuí", "Vila Leopoldina", "Vila Madalena", "Vila Maria", "Vila Mariana",
	"Vila Matilde", "Vila Medeiros", "Vila Olímpia", "Vila Prudente", "Vila Sônia",
}

// AmbiguousNeighborhoods are names that are also common words ("se",
// "saude", "luz"). In free text they only count when they close a segment
// of the address, alone or right after a marker such as "da" or "bairro";
// an explicit district field matches them as usual.
var AmbiguousNeighborhoods = []string{
	"Sé", "Saúde", "Luz", "Liberdade", "República", "Socorro", "Pedreira",
	"Limão", "Jardins", "Pari", "Lajeado",
}

var placeMarkers = map[string]bool{
	"da": true, "na": true, "bairro": true, "metro": true, "estacao": true,
}

type neighborhood struct {
	canonical string
	folded    string
	ambiguous bool
}

// neighborhoodIndex holds folded names sorted longest first so that
// "Jardim Paulista" wins over shorter overlapping entries.
type neighborhoodIndex []neighborhood

func newNeighborhoodIndex(names []string) neighborhoodIndex {
	ambiguous := make(map[string]bool, len(AmbiguousNeighborhoods))
	for _, n := range AmbiguousNeighborhoods {
		ambiguous[wordText(n)] = true
	}

	idx := make(neighborhoodIndex, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		f := wordText(n)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		idx = append(idx, neighborhood{canonical: strings.TrimSpace(n), folded: f, ambiguous: ambiguous[f]})
	}
	sort.SliceStable(idx, func(i, j int) bool { return len(idx[i].folded) > len(idx[j].folded) })
	return idx
}

// lookup returns the canonical spelling of the longest neighborhood that
// appears as a whole-word sequence inside free text, or "".
func (idx neighborhoodIndex) lookup(text string) string {
	return idx.find(text, false)
}

// lookupDistrict is lookup for a value known to name a district, where
// ambiguous names match like any other.
func (idx neighborhoodIndex) lookupDistrict(text string) string {
	return idx.find(text, true)
}

func (idx neighborhoodIndex) find(text string, district bool) string {
	hay := " " + wordText(text) + " "
	if strings.TrimSpace(hay) == "" {
		return ""
	}
	var segments []string
	for _, n := range idx {
		if !strings.Contains(hay, " "+n.folded+" ") {
			continue
		}
		if !n.ambiguous || district {
			return n.canonical
		}
		if segments == nil {
			segments = addressSegments(text)
		}
		if closesSegment(segments, n.folded) {
			return n.canonical
		}
	}
	return ""
}

// addressSegments splits text on the separators used between address parts
// and folds each part.
func addressSegments(text string) []string {
	for _, sep := range []string{" - ", " – ", " — ", "|", "/", "(", ")", ";"} {
		text = strings.ReplaceAll(text, sep, ",")
	}
	var out []string
	for _, part := range strings.Split(text, ",") {
		if w := wordText(part); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func closesSegment(segments []string, name string) bool {
	for _, seg := range segments {
		if seg == name {
			return true
		}
		head, ok := strings.CutSuffix(seg, " "+name)
		if !ok {
			continue
		}
		words := strings.Fields(head)
		if placeMarkers[words[len(words)-1]] {
			return true
		}
	}
	return false
}

// wordText folds s and replaces punctuation with spaces.
func wordText(s string) string {
	s = catalog.Fold(s)
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
