// Package money registers the declarations of config/testdata/currency.toml
// through generated code. Importing it is enough to resolve the invoice
// fields against metatype.DefaultRegistry.
package money

//go:generate go run ../../../cmd/metagen generate -c ../../../config/testdata/currency.toml --package-path github.com/jhump/metatype/codegen/internal/money
