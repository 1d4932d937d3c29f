package factory

import (
	"time"

	"github.com/mcoot/d2r-multiplay/internal/dependencies/mocks"
	"github.com/mcoot/d2r-multiplay/internal/storage/memory"
	"github.com/mcoot/d2r-multiplay/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *mocks.MockClock
	MockIDGen   *mocks.MockIDGen
	MockBackend *mocks.MockBackend
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDGen := mocks.NewMockIDGen()
	mockBackend := mocks.NewMockBackend()

	deps := dependencies{
		store:   memory.New(),
		clock:   mockClock,
		idgen:   mockIDGen,
		backend: mockBackend,
	}
	app := newWithDependencies(deps, Config{}, testutil.NopLogger())

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockIDGen:   mockIDGen,
		MockBackend: mockBackend,
	}
}
