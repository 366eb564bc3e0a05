package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Museu", "museu"},
		{"EXPOSIÇÃO", "exposicao"},
		{"Oficina, Robótica", "oficina"},
		{"Robótica, Oficina", "oficina"},
		{"Educação/Curso", "curso"},
		{"Cinema_ao_ar_livre", "cinema ao ar livre"},
		{"  ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeType(tc.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "vila madalena", Fold("  Vila   Madalena "))
	assert.Equal(t, "sao paulo", Fold("São Paulo"))
	assert.Equal(t, "butanta", Fold("Butantã"))
}

func TestCreateLine(t *testing.T) {
	r := Record{ID: "a-1", Name: "Feira", Type: "feira", Neighborhood: "Vila Madalena", Source: "A"}

	line, err := createLine(r, "nbs", " | ")
	require.NoError(t, err)
	assert.Equal(t, "Feira | Vila Madalena | A", line)

	_, err = createLine(r, "nx", " ")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	records := []Record{
		{ID: "1", Name: "MASP", Type: "museu", Neighborhood: "Bela Vista", Source: "wikipedia"},
		{ID: "2", Name: "Feira", Type: "feira", LocationDetails: "Praça Benedito Calixto, Pinheiros", Source: "visitesp", DateInfo: "2024-05-04"},
		{ID: "3", Name: "Oficina", Type: "oficina", Neighborhood: "Butantã", Source: "fablab"},
	}

	got := Filter(records, FilterOptions{Neighborhood: "butanta"})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got = Filter(records, FilterOptions{Neighborhood: "pinheiros"})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got = Filter(records, FilterOptions{Type: "Museum"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = Filter(records, FilterOptions{Date: "2024-05-04", Source: "VISITESP"})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Len(t, Filter(records, FilterOptions{}), 3)
}
