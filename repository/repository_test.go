package repository_test

import (
	"testing"

	testingutil "github.com/amirphl/Raijin/testing"
)

// setupRepoTest provisions a disposable database for one test and tears it
// down afterwards. Tests are skipped when no PostgreSQL server is reachable.
func setupRepoTest(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("skipping: test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	})

	return testDB, testingutil.NewTestFixtures(testDB)
}
