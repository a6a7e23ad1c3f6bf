package features

import (
	"testing"

	"github.com/cucumber/godog"
)

func TestDecisions(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "decisions",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"decisions.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned from godog, failed to run feature tests")
	}
}
