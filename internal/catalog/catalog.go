// Package catalog holds the ICD-10 chapter and category lists that back the
// semantic resolver tiers.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// #region types

// Chapter is an ICD-10 chapter: a contiguous block of category codes.
type Chapter struct {
	Start       string
	End         string
	Description string
}

// Category is a three-character ICD-10 category.
type Category struct {
	Code        string
	Description string
}

// Catalog bundles chapters and categories.
type Catalog struct {
	Chapters   []Chapter
	Categories []Category
}

// #endregion

// #region embedding-text

// Text is the string embedded for a chapter.
func (c Chapter) Text() string {
	return fmt.Sprintf("%s codes %s-%s", c.Description, c.Start, c.End)
}

// Text is the string embedded for a category.
func (c Category) Text() string {
	return fmt.Sprintf("code %s %s", c.Code, c.Description)
}

// Fingerprint identifies the catalog contents plus any extra inputs
// (vocabulary keys) so cached embeddings can be invalidated on change.
func (c Catalog) Fingerprint(extra ...string) string {
	h := sha256.New()
	for _, ch := range c.Chapters {
		h.Write([]byte(ch.Text()))
		h.Write([]byte{0})
	}
	for _, cat := range c.Categories {
		h.Write([]byte(cat.Text()))
		h.Write([]byte{0})
	}
	for _, e := range extra {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// #endregion

// #region defaults

// Default returns the built-in chapter list and a sample of common
// categories, used when no CSV files are configured.
func Default() Catalog {
	return Catalog{
		Chapters:   append([]Chapter(nil), defaultChapters...),
		Categories: append([]Category(nil), defaultCategories...),
	}
}

var defaultChapters = []Chapter{
	{"A00", "B99", "Certain infectious and parasitic diseases"},
	{"C00", "D48", "Neoplasms"},
	{"D50", "D89", "Diseases of the blood and blood-forming organs and certain disorders involving the immune mechanism"},
	{"E00", "E90", "Endocrine, nutritional and metabolic diseases"},
	{"F00", "F99", "Mental and behavioural disorders"},
	{"G00", "G99", "Diseases of the nervous system"},
	{"H00", "H59", "Diseases of the eye and adnexa"},
	{"H60", "H95", "Diseases of the ear and mastoid process"},
	{"I00", "I99", "Diseases of the circulatory system"},
	{"J00", "J99", "Diseases of the respiratory system"},
	{"K00", "K93", "Diseases of the digestive system"},
	{"L00", "L99", "Diseases of the skin and subcutaneous tissue"},
	{"M00", "M99", "Diseases of the musculoskeletal system and connective tissue"},
	{"N00", "N99", "Diseases of the genitourinary system"},
	{"O00", "O99", "Pregnancy, childbirth and the puerperium"},
	{"P00", "P96", "Certain conditions originating in the perinatal period"},
	{"Q00", "Q99", "Congenital malformations, deformations and chromosomal abnormalities"},
	{"R00", "R99", "Symptoms, signs and abnormal clinical and laboratory findings, not elsewhere classified"},
	{"S00", "T98", "Injury, poisoning and certain other consequences of external causes"},
	{"V01", "Y98", "External causes of morbidity and mortality"},
	{"Z00", "Z99", "Factors influencing health status and contact with health services"},
	{"U00", "U99", "Codes for special purposes"},
}

var defaultCategories = []Category{
	{"A09", "Diarrhoea and gastroenteritis of presumed infectious origin"},
	{"A41", "Other sepsis"},
	{"A90", "Dengue fever"},
	{"B20", "Human immunodeficiency virus disease"},
	{"C34", "Malignant neoplasm of bronchus and lung"},
	{"C50", "Malignant neoplasm of breast"},
	{"C61", "Malignant neoplasm of prostate"},
	{"E10", "Insulin-dependent diabetes mellitus"},
	{"E11", "Non-insulin-dependent diabetes mellitus"},
	{"E66", "Obesity"},
	{"F20", "Schizophrenia"},
	{"F32", "Depressive episode"},
	{"G40", "Epilepsy"},
	{"G30", "Alzheimer disease"},
	{"I10", "Essential primary hypertension"},
	{"I21", "Acute myocardial infarction"},
	{"I50", "Heart failure"},
	{"I64", "Stroke, not specified as haemorrhage or infarction"},
	{"J18", "Pneumonia, organism unspecified"},
	{"J44", "Other chronic obstructive pulmonary disease"},
	{"J45", "Asthma"},
	{"K35", "Acute appendicitis"},
	{"K80", "Cholelithiasis"},
	{"M54", "Dorsalgia"},
	{"N18", "Chronic kidney disease"},
	{"N39", "Other disorders of urinary system"},
	{"O80", "Single spontaneous delivery"},
	{"S72", "Fracture of femur"},
	{"U07", "COVID-19"},
}

// #endregion
