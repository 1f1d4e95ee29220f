package stats

import "github.com/stretchr/testify/mock"

type MockStatsUpdater struct {
	mock.Mock
}

// NewPermissiveMock returns a mock that accepts any metric update. Tests
// that assert on specific metrics should build their own expectations.
func NewPermissiveMock() *MockStatsUpdater {
	su := new(MockStatsUpdater)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	su.On("RegisterMetric", mock.Anything).Maybe()
	su.On("Run").Maybe()
	return su
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Run() {
	m.Called()
}
