// Package datastoretest seeds an in-memory admissions table for tests.
package datastoretest

import (
	"fmt"
	"testing"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
)

// #region expected-values
// Aggregates of the seeded table.
const (
	Rows               = 240
	Columns            = 12
	Deaths             = 35
	States             = 2
	Cities             = 5
	AvgAge             = 49.5
	PortoAlegreDeaths  = 7
	MaleDeaths         = 18
	FemaleDeaths       = 17
	RespiratoryRecords = 60
)

// #endregion expected-values

const createTable = `
CREATE TABLE dados_sus3 (
	DIAG_PRINC                 TEXT,
	MUNIC_RES                  INTEGER,
	CIDADE_RESIDENCIA_PACIENTE TEXT,
	UF_RESIDENCIA_PACIENTE     TEXT,
	IDADE                      INTEGER,
	SEXO                       INTEGER,
	MORTE                      INTEGER,
	CID_MORTE                  TEXT,
	UTI_MES_TO                 INTEGER,
	DT_INTER                   TEXT,
	DT_SAIDA                   TEXT,
	VAL_TOT                    REAL
);`

var (
	cities = []struct {
		name string
		code int
	}{
		{"Porto Alegre", 431490},
		{"Santa Maria", 430300},
		{"Caxias do Sul", 430510},
		{"Pelotas", 431440},
		{"Canoas", 430460},
	}
	diagnoses = []string{"J189", "I219", "E119", "C509", "J459", "I10", "K359", "N189"}
)

// #region new-seeded
// NewSeeded returns an in-memory Store holding a deterministic dados_sus3.
func NewSeeded(t testing.TB) *datastore.Store {
	t.Helper()
	s, err := datastore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := Seed(s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

// Seed creates and fills dados_sus3 in s.
func Seed(s *datastore.Store) error {
	db := s.DB()
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO dados_sus3 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < Rows; i++ {
		city := cities[i%len(cities)]
		uf := "RS"
		if i%10 == 9 {
			uf = "SC"
		}
		sex := 1
		if i%2 == 1 {
			sex = 3
		}
		death, cidMorte := 0, ""
		if i%7 == 0 {
			death, cidMorte = 1, diagnoses[i%len(diagnoses)]
		}
		_, err := stmt.Exec(
			diagnoses[i%len(diagnoses)], city.code, city.name, uf,
			20+i%60, sex, death, cidMorte, i%3,
			fmt.Sprintf("2023-%02d-01", 1+i%12), fmt.Sprintf("2023-%02d-10", 1+i%12),
			float64(100+i),
		)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// #endregion new-seeded
