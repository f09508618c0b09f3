package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sparkreel-server/internal/domain"
	"sparkreel-server/internal/generator"
)

// MockStoryboardGenerator is a mock type for the StoryboardGenerator type
type MockStoryboardGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, script, assets
func (_m *MockStoryboardGenerator) Generate(ctx context.Context, script domain.ScriptData, assets domain.AssetSelection) ([]domain.Storyboard, error) {
	ret := _m.Called(ctx, script, assets)

	var r0 []domain.Storyboard
	if rf, ok := ret.Get(0).(func(context.Context, domain.ScriptData, domain.AssetSelection) []domain.Storyboard); ok {
		r0 = rf(ctx, script, assets)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]domain.Storyboard)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, domain.ScriptData, domain.AssetSelection) error); ok {
		r1 = rf(ctx, script, assets)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStoryboardGenerator creates a new instance of MockStoryboardGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryboardGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockStoryboardGenerator {
	m := &MockStoryboardGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.StoryboardGenerator = (*MockStoryboardGenerator)(nil)

// MockFusionGenerator is a mock type for the FusionGenerator type
type MockFusionGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, storyboards, defaults
func (_m *MockFusionGenerator) Generate(ctx context.Context, storyboards []domain.Storyboard, defaults domain.VideoSettings) ([]domain.FusionImage, error) {
	ret := _m.Called(ctx, storyboards, defaults)

	var r0 []domain.FusionImage
	if rf, ok := ret.Get(0).(func(context.Context, []domain.Storyboard, domain.VideoSettings) []domain.FusionImage); ok {
		r0 = rf(ctx, storyboards, defaults)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]domain.FusionImage)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []domain.Storyboard, domain.VideoSettings) error); ok {
		r1 = rf(ctx, storyboards, defaults)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockFusionGenerator creates a new instance of MockFusionGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockFusionGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockFusionGenerator {
	m := &MockFusionGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.FusionGenerator = (*MockFusionGenerator)(nil)

// MockVideoGenerator is a mock type for the VideoGenerator type
type MockVideoGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, image, settings
func (_m *MockVideoGenerator) Generate(ctx context.Context, image domain.FusionImage, settings domain.RegenerateSettings) ([]domain.FinalVideo, error) {
	ret := _m.Called(ctx, image, settings)

	var r0 []domain.FinalVideo
	if rf, ok := ret.Get(0).(func(context.Context, domain.FusionImage, domain.RegenerateSettings) []domain.FinalVideo); ok {
		r0 = rf(ctx, image, settings)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]domain.FinalVideo)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, domain.FusionImage, domain.RegenerateSettings) error); ok {
		r1 = rf(ctx, image, settings)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockVideoGenerator creates a new instance of MockVideoGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockVideoGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockVideoGenerator {
	m := &MockVideoGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.VideoGenerator = (*MockVideoGenerator)(nil)

// MockPromptOptimizer is a mock type for the PromptOptimizer type
type MockPromptOptimizer struct {
	mock.Mock
}

// OptimizePrompt provides a mock function with given fields: ctx, text
func (_m *MockPromptOptimizer) OptimizePrompt(ctx context.Context, text string) string {
	ret := _m.Called(ctx, text)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	return r0
}

// NewMockPromptOptimizer creates a new instance of MockPromptOptimizer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockPromptOptimizer(t interface {
	mock.TestingT
	Helper()
}) *MockPromptOptimizer {
	m := &MockPromptOptimizer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.PromptOptimizer = (*MockPromptOptimizer)(nil)
