package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

func TestNormalizeScenario(t *testing.T) {
	n := New()

	rec, err := n.Normalize("A", catalog.RawRecord{"title": "Feira", "district": "Vila Madalena"})
	require.NoError(t, err)

	assert.Equal(t, "Feira", rec.Name)
	assert.Equal(t, "Vila Madalena", rec.Neighborhood)
	assert.Equal(t, "A", rec.Source)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, strings.HasPrefix(rec.ID, "a-"), rec.ID)
}

func TestNormalizeRejectsMissingName(t *testing.T) {
	n := New()
	for _, raw := range []catalog.RawRecord{
		{},
		{"title": ""},
		{"title": "N/A", "location": "Pinheiros"},
		{"title": nil},
	} {
		_, err := n.Normalize("fablab", raw)
		assert.True(t, errors.Is(err, ErrMissingName), "raw=%v", raw)
	}
}

func TestNormalizeIdentityStability(t *testing.T) {
	n := New()
	raw := catalog.RawRecord{
		"title":               "Oficina de Robótica",
		"official_event_link": "https://www.fablablivresp.prefeitura.sp.gov.br/curso/robotica",
		"location":            "FabLab Butantã",
	}

	first, err := n.Normalize("fablab", raw)
	require.NoError(t, err)
	second, err := n.Normalize("fablab", raw)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Fields outside the natural key do not move the identity.
	changed := catalog.RawRecord{}
	for k, v := range raw {
		changed[k] = v
	}
	changed["date"] = "20/01/2023"
	third, err := n.Normalize("fablab", changed)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	// Same item from another source gets another identity.
	other, err := n.Normalize("visitesp", raw)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestNormalizeIdentityIgnoresLinkCosmetics(t *testing.T) {
	n := New()
	a, err := n.Normalize("visitesp", catalog.RawRecord{"title": "Show", "link": "https://VisiteSaoPaulo.com/evento/show/"})
	require.NoError(t, err)
	b, err := n.Normalize("visitesp", catalog.RawRecord{"title": " show ", "link": "https://visitesaopaulo.com/evento/show"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestNormalizeFabLabProfile(t *testing.T) {
	n := New(WithProfile("fablab", Profile{
		StripPrefixes: []string{"fablab ", "fab lab ", "ceu ", "centro cultural ", "biblioteca "},
	}))

	rec, err := n.Normalize("fablab", catalog.RawRecord{
		"title":               "Introdução à Impressão 3D",
		"official_event_link": "/curso/impressao-3d",
		"date":                "20/01/2023",
		"time":                "14h às 17h",
		"location":            "CEU Jaçanã",
		"categories":          "Oficina, Impressão 3D",
		"description":         "N/A (disponível no link oficial do evento)",
		"source_site":         "https://www.fablablivresp.prefeitura.sp.gov.br",
	})
	require.NoError(t, err)

	assert.Equal(t, "Jaçanã", rec.Neighborhood)
	assert.Equal(t, "CEU Jaçanã", rec.LocationDetails)
	assert.Equal(t, "2023-01-20", rec.DateInfo)
	assert.Equal(t, "14h às 17h", rec.TimeInfo)
	assert.Equal(t, "oficina", rec.Type)
	assert.Equal(t, "", rec.Description)
}

func TestNormalizeMuseumProfile(t *testing.T) {
	n := New(WithProfile("wikipedia", Profile{
		DefaultType: "Museu",
		DefaultTime: "Variado",
		DescribeAs:  "Museu: %s",
	}))

	rec, err := n.Normalize("wikipedia", catalog.RawRecord{
		"title":       "Museu do Ipiranga",
		"district":    "Ipiranga",
		"source_site": "https://pt.wikipedia.org/wiki/Lista_de_museus_da_cidade_de_S%C3%A3o_Paulo",
	})
	require.NoError(t, err)

	assert.Equal(t, "museu", rec.Type)
	assert.Equal(t, "Variado", rec.TimeInfo)
	assert.Equal(t, "Museu: Museu do Ipiranga", rec.Description)
	assert.Equal(t, "Ipiranga", rec.Neighborhood)
	assert.Equal(t, "Ipiranga", rec.LocationDetails)
	assert.Equal(t, "", rec.DateInfo)
	assert.Contains(t, rec.DetailsLink, "pt.wikipedia.org")
}

func TestNormalizeUnknownDistrictKeptVerbatim(t *testing.T) {
	rec, err := New().Normalize("wikipedia", catalog.RawRecord{"title": "Museu X", "district": " Vila Nova Cachoeirinha "})
	require.NoError(t, err)
	assert.Equal(t, "Vila Nova Cachoeirinha", rec.Neighborhood)
}

func TestNormalizeLocationWithoutNeighborhood(t *testing.T) {
	rec, err := New().Normalize("visitesp", catalog.RawRecord{"title": "Festival", "location": "Centro Cultural São Paulo"})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Neighborhood)
	assert.Equal(t, "Centro Cultural São Paulo", rec.LocationDetails)
}

func TestExtractNeighborhood(t *testing.T) {
	n := New()
	tests := map[string]string{
		"Rua Augusta, 1500 - Consolação":        "Consolação",
		"Parque Ibirapuera, portão 3":           "Ibirapuera",
		"Av. Brig. Faria Lima, Jardim Paulista": "Jardim Paulista",
		"Rua dos Pinheiros":                     "Pinheiros",
		"Catedral da Sé":                        "Sé",
		"Online":                                "",
		"":                                      "",
		"SESC POMPEIA":                          "Pompeia",
		"Inscreva-se pelo site":                 "",
		"Centro de Saúde Escola":                "",
		"Espaço Luz e Sombra":                   "",
		"Praça da Liberdade, 100":               "Liberdade",
		"Estação da Luz":                        "Luz",
		"Rua Domingos de Morais - Saúde":        "Saúde",
	}
	for in, want := range tests {
		assert.Equal(t, want, n.ExtractNeighborhood(in), "input %q", in)
	}
}

func TestExplicitDistrictMatchesAmbiguousNames(t *testing.T) {
	rec, err := New().Normalize("wikipedia", catalog.RawRecord{
		"title":    "Museu de Arte Sacra",
		"district": "luz",
	})
	require.NoError(t, err)
	assert.Equal(t, "Luz", rec.Neighborhood)

	rec, err = New().Normalize("fablab", catalog.RawRecord{
		"title":    "Oficina de Eletrônica",
		"location": "Centro de Saúde Escola",
	})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Neighborhood)
}

func TestWithNeighborhoodsOverridesTable(t *testing.T) {
	n := New(WithNeighborhoods([]string{"Copacabana"}))
	assert.Equal(t, "Copacabana", n.ExtractNeighborhood("Posto 5, Copacabana"))
	assert.Equal(t, "", n.ExtractNeighborhood("Vila Madalena"))
}

func TestNormalizeListValues(t *testing.T) {
	rec, err := New().Normalize("x", catalog.RawRecord{
		"title":    "Mostra",
		"category": []any{"Exposição", "Arte"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exposicao", rec.Type)
}

func TestNormalizeLink(t *testing.T) {
	tests := map[string]string{
		"HTTPS://Example.COM:443/a/":   "https://example.com/a",
		"http://example.com:80/":       "http://example.com/",
		"//example.com/x#frag":         "https://example.com/x",
		"relative/path":                "relative/path",
		"":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLink(in), "input %q", in)
	}
}

func TestSourceSlug(t *testing.T) {
	assert.Equal(t, "visite-sao-paulo", sourceSlug("Visite São Paulo"))
	assert.Equal(t, "museus-da-wikipedia", sourceSlug("Museus da Wikipédia"))
	assert.Equal(t, "src", sourceSlug("!!!"))
}
