package testing

// Credentials of the throwaway databases started by the containers package.
const (
	TestUsername        = "testuser"
	TestDatabaseName    = "testdb"
	TestPasswordDefault = "testpass"
)
