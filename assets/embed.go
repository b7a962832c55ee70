// Package assets bundles the seed machine dataset into the binary so a
// fresh deployment works before anyone provides a data file.
package assets

import _ "embed"

//go:embed rvm.csv
var seedCSV []byte

// SeedCSV returns the bundled machine dataset in the on-disk CSV format.
func SeedCSV() []byte {
	return seedCSV
}
