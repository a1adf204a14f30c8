// Package crawler defines the core types, interfaces, URL rules, keyword
// tables, error taxonomy, and delivery ledger shared by the careerwatch
// pipeline stages.
package crawler
