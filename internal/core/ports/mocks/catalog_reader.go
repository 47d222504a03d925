package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type CatalogReader struct {
	mock.Mock
}

func (_m *CatalogReader) GetCompany(ctx context.Context, companyID uuid.UUID) (*domain.Company, error) {
	ret := _m.Called(ctx, companyID)

	var r0 *domain.Company
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Company)
	}

	return r0, ret.Error(1)
}

func (_m *CatalogReader) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	ret := _m.Called(ctx, eventID)

	var r0 *domain.Event
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Event)
	}

	return r0, ret.Error(1)
}

func NewCatalogReader(t interface {
	mock.TestingT
	Cleanup(func())
}) *CatalogReader {
	m := &CatalogReader{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
