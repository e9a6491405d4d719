package handler_test

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/fixtures"
	. "github.com/enactiq/enact/handler"
	"github.com/enactiq/enact/process"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Registry", func() {
	var (
		hnd      *fixtures.StubHandler
		registry *Registry
	)

	BeforeEach(func() {
		hnd = &fixtures.StubHandler{
			HandlerName: "<handler>",
		}

		var err error
		registry, err = NewRegistry(logging.DiscardLogger{}, hnd)
		Expect(err).ShouldNot(HaveOccurred())
	})

	Describe("func NewRegistry()", func() {
		It("returns an error if two handlers serve the same name", func() {
			_, err := NewRegistry(
				logging.DiscardLogger{},
				hnd,
				&fixtures.StubHandler{HandlerName: "<handler>"},
			)
			Expect(err).To(MatchError(`multiple handlers are registered for work items named "<handler>"`))
		})
	})

	Describe("func Get()", func() {
		It("returns the handler serving the given name", func() {
			h, ok := registry.Get("<handler>")
			Expect(ok).To(BeTrue())
			Expect(h).To(BeIdenticalTo(hnd))
		})

		It("returns false for an unregistered name", func() {
			_, ok := registry.Get("<unknown>")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("func Activate()", func() {
		It("routes the work item to the handler serving its name", func() {
			hnd.ActivateFunc = func(
				context.Context,
				process.Manager,
				*process.WorkItem,
				process.Transition,
			) (*process.Transition, error) {
				return &process.Transition{ID: process.TransitionComplete}, nil
			}

			tr, err := registry.Activate(
				context.Background(),
				nil,
				&process.WorkItem{Name: "<handler>"},
				process.Transition{ID: process.TransitionActivate},
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(tr.ID).To(Equal(process.TransitionComplete))
		})

		It("returns an error if no handler serves the work item's name", func() {
			_, err := registry.Activate(
				context.Background(),
				nil,
				&process.WorkItem{Name: "<unknown>"},
				process.Transition{},
			)
			Expect(err).To(Equal(UnknownHandlerError{Name: "<unknown>"}))
		})

		It("propagates handler errors", func() {
			hnd.ActivateFunc = func(
				context.Context,
				process.Manager,
				*process.WorkItem,
				process.Transition,
			) (*process.Transition, error) {
				return nil, errors.New("<error>")
			}

			_, err := registry.Activate(
				context.Background(),
				nil,
				&process.WorkItem{Name: "<handler>"},
				process.Transition{},
			)
			Expect(err).To(MatchError("<error>"))
		})
	})
})
