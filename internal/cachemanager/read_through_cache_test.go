package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/mocks"
)

type compileInput struct {
	SpecID  string
	Version int
}

func loadPlan(_ context.Context, in compileInput) (planStub, error) {
	return planStub{SpecID: in.SpecID, Version: in.Version}, nil
}

func failingLoad(context.Context, compileInput) (planStub, error) {
	return planStub{}, errors.New("spec not published")
}

func TestReadThroughCache_Get_WithCacheDisabled(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, true)

	got, err := rtc.Get(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, planStub{SpecID: "a", Version: 1}, got)
}

func TestReadThroughCache_GetWithRefresh_WithCacheDisabled(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, true)

	got, err := rtc.GetWithRefresh(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, planStub{SpecID: "a", Version: 1}, got)
}

func TestReadThroughCache_Get_WithValueInCache(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().Get(mock.Anything, "a@1").Return(planStub{SpecID: "cached", Version: 1}, true)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, false)

	got, err := rtc.Get(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "cached", got.SpecID)
}

func TestReadThroughCache_Get_EmptyCache(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().Get(mock.Anything, "a@1").Return(planStub{}, false)
	managerMock.EXPECT().Set(mock.Anything, "a@1", planStub{SpecID: "a", Version: 1}, time.Minute).Return()
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, false)

	got, err := rtc.Get(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, planStub{SpecID: "a", Version: 1}, got)
}

func TestReadThroughCache_Get_LoadErrorIsNotCached(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().Get(mock.Anything, "a@1").Return(planStub{}, false)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, failingLoad, false)

	_, err := rtc.Get(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.Error(t, err)
}

func TestReadThroughCache_GetWithRefresh_WithValueInCache(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().GetWithRefresh(mock.Anything, "a@1", time.Minute).Return(planStub{SpecID: "cached"}, true)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, false)

	got, err := rtc.GetWithRefresh(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "cached", got.SpecID)
}

func TestReadThroughCache_GetWithRefresh_EmptyCache(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().GetWithRefresh(mock.Anything, "a@1", time.Minute).Return(planStub{}, false)
	managerMock.EXPECT().Set(mock.Anything, "a@1", planStub{SpecID: "a", Version: 1}, time.Minute).Return()
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, false)

	got, err := rtc.GetWithRefresh(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, planStub{SpecID: "a", Version: 1}, got)
}

func TestReadThroughCache_GetWithRefresh_LoadError(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().GetWithRefresh(mock.Anything, "a@1", time.Minute).Return(planStub{}, false)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, failingLoad, false)

	_, err := rtc.GetWithRefresh(context.Background(), "a@1", compileInput{SpecID: "a", Version: 1}, time.Minute)
	require.Error(t, err)
}

func TestReadThroughCache_Invalidate(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, planStub](t)
	managerMock.EXPECT().Delete(mock.Anything, "a@1", "a@2").Return(nil)
	rtc := NewReadThroughCache[string, planStub, compileInput](managerMock, loadPlan, false)

	require.NoError(t, rtc.Invalidate(context.Background(), "a@1", "a@2"))
}
