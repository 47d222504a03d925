package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type RequestRepository struct {
	mock.Mock
}

func (_m *RequestRepository) Create(ctx context.Context, req *domain.AssignmentRequest, entry domain.HistoryEntry) error {
	ret := _m.Called(ctx, req, entry)
	return ret.Error(0)
}

func (_m *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*domain.AssignmentRequest, error) {
	ret := _m.Called(ctx, requestID)

	var r0 *domain.AssignmentRequest
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.AssignmentRequest)
	}

	return r0, ret.Error(1)
}

func (_m *RequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.AssignmentRequest, error) {
	ret := _m.Called(ctx, filter)

	var r0 []domain.AssignmentRequest
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.AssignmentRequest)
	}

	return r0, ret.Error(1)
}

func (_m *RequestRepository) Transition(ctx context.Context, t domain.RequestTransition) error {
	ret := _m.Called(ctx, t)
	return ret.Error(0)
}

func (_m *RequestRepository) CommitAssignment(ctx context.Context, a domain.StandAssignment) error {
	ret := _m.Called(ctx, a)
	return ret.Error(0)
}

func (_m *RequestRepository) UpdatePriority(ctx context.Context, requestID uuid.UUID, score float64, at time.Time) error {
	ret := _m.Called(ctx, requestID, score, at)
	return ret.Error(0)
}

func NewRequestRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *RequestRepository {
	m := &RequestRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
