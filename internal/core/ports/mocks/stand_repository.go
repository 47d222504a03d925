package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type StandRepository struct {
	mock.Mock
}

func (_m *StandRepository) GetByID(ctx context.Context, standID uuid.UUID) (*domain.Stand, error) {
	ret := _m.Called(ctx, standID)

	var r0 *domain.Stand
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Stand)
	}

	return r0, ret.Error(1)
}

func (_m *StandRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	ret := _m.Called(ctx, eventID)

	var r0 []domain.Stand
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Stand)
	}

	return r0, ret.Error(1)
}

func (_m *StandRepository) GetAvailableStandsByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, error) {
	ret := _m.Called(ctx, eventID)

	var r0 []domain.Stand
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Stand)
	}

	return r0, ret.Error(1)
}

func NewStandRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *StandRepository {
	m := &StandRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
