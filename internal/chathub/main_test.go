package chathub_test

import (
	"os"
	"testing"

	"matchlink/backend/internal/logging"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}
