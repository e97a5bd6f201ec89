// Package testing holds constants shared by qdb tests. Its subpackages
// provide a testify mock of the connector (mocks) and Docker backed
// databases for integration tests (containers, behind the integration build
// tag).
//
// For a fake connector that answers statements from expectations, see
// github.com/gaborage/qdb/database/testing.
package testing
