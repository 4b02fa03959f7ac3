// Package output renders tradegate-cli results as a table, JSON or YAML.
//
// Tables are built by reflection from slices, maps and structs. Column
// names come from json tags; fields tagged `table:"wide"` only appear with
// --wide and fields tagged `table:"-"` never appear.
package output
