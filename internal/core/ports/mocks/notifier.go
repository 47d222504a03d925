package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type Notifier struct {
	mock.Mock
}

func (_m *Notifier) Notify(ctx context.Context, entry domain.HistoryEntry) error {
	ret := _m.Called(ctx, entry)
	return ret.Error(0)
}

func NewNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *Notifier {
	m := &Notifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
