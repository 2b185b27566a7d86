// Package sheet reads and writes the tabular control files the pipeline
// processes.
//
// CSV files use the standard library codec; .xlsx workbooks go through
// excelize, reading the first worksheet. Legacy .xls files are accepted on
// input when they turn out to be renamed .xlsx content, and rejected with a
// conversion hint otherwise. Row order is preserved end to end, and every
// row is normalized to the header width so cell addressing stays positional.
package sheet
