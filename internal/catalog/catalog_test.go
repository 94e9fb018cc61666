package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestReadChapters_Latin1(t *testing.T) {
	data := latin1(t, "NUMCAP;CATINIC;CATFIM;DESCRICAO;DESCRABREV\n"+
		"10;J00;J99;Capítulo X - Doenças do aparelho respiratório;X. Doenças aparelho respiratório\n"+
		"9;I00;I99;Capítulo IX - Doenças do aparelho circulatório;IX. Doenças aparelho circulatório\n")

	chapters, err := ReadChapters(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, Chapter{Start: "J00", End: "J99", Description: "Capítulo X - Doenças do aparelho respiratório"}, chapters[0])
	assert.Equal(t, "I00", chapters[1].Start)
}

func TestReadCategories(t *testing.T) {
	data := latin1(t, "CAT;CLASSIF;DESCRICAO;DESCRABREV\nJ18;;Pneumonia por microorganismo não especificado;J18 Pneumonia p/microorg NE\nJ45;;Asma;J45 Asma\n;;;\n")
	cats, err := ReadCategories(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "J18", cats[0].Code)
	assert.Equal(t, "Pneumonia por microorganismo não especificado", cats[0].Description)
}

func TestReadChapters_MissingColumn(t *testing.T) {
	_, err := ReadChapters(bytes.NewReader([]byte("A;B\n1;2\n")))
	require.ErrorIs(t, err, errMissingColumn)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	chPath := filepath.Join(dir, "CID-10-CAPITULOS.CSV")
	require.NoError(t, os.WriteFile(chPath, latin1(t, "CATINIC;CATFIM;DESCRICAO\nA00;B99;Algumas doenças infecciosas e parasitárias\n"), 0o644))

	cat, err := Load(chPath, "")
	require.NoError(t, err)
	require.Len(t, cat.Chapters, 1)
	assert.NotEmpty(t, cat.Categories, "empty categories path keeps built-ins")

	_, err = Load(filepath.Join(dir, "absent.csv"), "")
	require.Error(t, err)
}

func TestDefaultAndTexts(t *testing.T) {
	cat := Default()
	assert.Len(t, cat.Chapters, 22)
	assert.Equal(t, "Diseases of the respiratory system codes J00-J99", cat.Chapters[9].Text())
	assert.Equal(t, "code J45 Asthma", Category{Code: "J45", Description: "Asthma"}.Text())

	// Default returns copies
	cat.Chapters[0].Description = "changed"
	assert.NotEqual(t, "changed", Default().Chapters[0].Description)
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint("x"), b.Fingerprint("x"))
	assert.NotEqual(t, a.Fingerprint("x"), b.Fingerprint("y"))
	b.Categories = b.Categories[1:]
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}
