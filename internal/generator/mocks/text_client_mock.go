package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sparkreel-server/internal/generator"
)

// MockTextClient is a mock type for the TextClient type
type MockTextClient struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, systemPrompt, userInput
func (_m *MockTextClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	ret := _m.Called(ctx, systemPrompt, userInput)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, systemPrompt, userInput)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, systemPrompt, userInput)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// CountTokens provides a mock function with given fields: text
func (_m *MockTextClient) CountTokens(text string) int {
	ret := _m.Called(text)

	var r0 int
	if rf, ok := ret.Get(0).(func(string) int); ok {
		r0 = rf(text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(int)
		}
	}

	return r0
}

// NewMockTextClient creates a new instance of MockTextClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTextClient(t interface {
	mock.TestingT
	Helper()
}) *MockTextClient {
	m := &MockTextClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.TextClient = (*MockTextClient)(nil)
